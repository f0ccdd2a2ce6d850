package http

import (
	"fmt"
	"io"
	"strings"

	"github.com/elnormous/contenttype"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultCharset applies when the response does not declare one.
const DefaultCharset = "utf-8"

// Charset returns the charset parameter of a Content-Type header value, or
// DefaultCharset.
func Charset(contentType string) string {
	if contentType == "" {
		return DefaultCharset
	}

	mediaType := contenttype.NewMediaType(contentType)
	for key, value := range mediaType.Parameters {
		if strings.EqualFold(key, "charset") && value != "" {
			return strings.ToLower(strings.Trim(value, `"`))
		}
	}

	return DefaultCharset
}

// Encoding resolves a charset label. Unknown labels fall back to UTF-8.
func Encoding(charset string) encoding.Encoding {
	enc, err := htmlindex.Get(charset)
	if err != nil || enc == nil {
		return unicode.UTF8
	}

	return enc
}

// NewDecodingReader decodes r from charset to UTF-8. Multi-byte sequences
// split across reads are held until complete.
func NewDecodingReader(r io.Reader, charset string) io.Reader {
	return transform.NewReader(r, Encoding(charset).NewDecoder())
}

// DecodeString decodes a whole body.
func DecodeString(body []byte, charset string) (string, error) {
	out, _, err := transform.Bytes(Encoding(charset).NewDecoder(), body)
	if err != nil {
		return "", fmt.Errorf("decoding %s body: %w", charset, err)
	}

	return string(out), nil
}
