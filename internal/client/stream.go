package client

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/fivetwenty-io/spacetrack/internal/constants"
	"github.com/fivetwenty-io/spacetrack/internal/http"
)

// closerFunc adapts a function to io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// byteChunks yields reads of at most constants.ChunkSize bytes from r.
func byteChunks(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		buf := make([]byte, constants.ChunkSize)

		for {
			n, err := r.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])

				if !yield(chunk, nil) {
					return
				}
			}

			if errors.Is(err, io.EOF) {
				return
			}

			if err != nil {
				yield(nil, fmt.Errorf("reading response stream: %w", err))

				return
			}
		}
	}
}

// textChunks decodes r from charset and yields it in chunks. A UTF-8
// sequence split by a read is carried into the next chunk.
func textChunks(r io.Reader, charset string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var carry []byte

		for chunk, err := range byteChunks(http.NewDecodingReader(r, charset)) {
			if err != nil {
				yield("", err)

				return
			}

			data := append(carry, chunk...) //nolint:gocritic // carry is owned here
			cut := incompleteSuffix(data)
			carry = append([]byte(nil), data[cut:]...)

			if cut > 0 && !yield(string(data[:cut]), nil) {
				return
			}
		}

		if len(carry) > 0 {
			yield(string(carry), nil)
		}
	}
}

// incompleteSuffix returns the start of a truncated trailing UTF-8 sequence,
// or len(data) when data ends on a rune boundary.
func incompleteSuffix(data []byte) int {
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if utf8.RuneStart(data[i]) {
			if !utf8.FullRune(data[i:]) {
				return i
			}

			break
		}
	}

	return len(data)
}

// normalizeNewlines rewrites CRLF to LF. A CR ending a chunk is held back
// until the next chunk shows whether an LF follows it, and is flushed as
// is when the stream ends.
func normalizeNewlines(chunks iter.Seq2[string, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		held := false

		for chunk, err := range chunks {
			if err != nil {
				yield("", err)

				return
			}

			if held {
				chunk = "\r" + chunk
				held = false
			}

			if strings.HasSuffix(chunk, "\r") {
				chunk = chunk[:len(chunk)-1]
				held = true
			}

			chunk = strings.ReplaceAll(chunk, "\r\n", "\n")
			if chunk == "" {
				continue
			}

			if !yield(chunk, nil) {
				return
			}
		}

		if held {
			yield("\r", nil)
		}
	}
}

// splitLines yields the lines of a normalised chunk stream without their
// terminators. LF and a lone CR both end a line. A trailing partial line
// is yielded when the stream ends; a terminator at the very end does not
// produce an extra empty line.
func splitLines(chunks iter.Seq2[string, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var pending strings.Builder

		for chunk, err := range chunks {
			if err != nil {
				yield("", err)

				return
			}

			for {
				i := strings.IndexAny(chunk, "\r\n")
				if i < 0 {
					pending.WriteString(chunk)

					break
				}

				pending.WriteString(chunk[:i])

				line := pending.String()
				pending.Reset()

				if !yield(line, nil) {
					return
				}

				chunk = chunk[i+1:]
			}
		}

		if pending.Len() > 0 {
			yield(pending.String(), nil)
		}
	}
}
