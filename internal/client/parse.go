package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/spacetrack/internal/http"
	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

// decodeDocument decodes a JSON body, keeping numbers as json.Number.
func decodeDocument(text string) (any, error) {
	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.UseNumber()

	var data any

	err := decoder.Decode(&data)
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return data, nil
}

// normalizeText decodes a whole text body and rewrites CRLF to LF.
func normalizeText(body []byte, charset string) (string, error) {
	text, err := http.DecodeString(body, charset)
	if err != nil {
		return "", err
	}

	return strings.ReplaceAll(text, "\r\n", "\n"), nil
}

// parseTypes converts the fields of every record in data with the predicate
// of the same name. Field names match case-insensitively; fields without a
// predicate are left alone. Anything but a list of objects is returned
// unchanged.
func parseTypes(data any, predicates []spacetrack.Predicate) (any, error) {
	records, ok := data.([]any)
	if !ok {
		return data, nil
	}

	byName := make(map[string]spacetrack.Predicate, len(predicates))
	for _, p := range predicates {
		byName[p.Name] = p
	}

	for _, record := range records {
		fields, ok := record.(map[string]any)
		if !ok {
			continue
		}

		for key, value := range fields {
			predicate, ok := byName[strings.ToLower(key)]
			if !ok {
				continue
			}

			parsed, err := predicate.Parse(value)
			if err != nil {
				return nil, fmt.Errorf("parsing field %s: %w", key, err)
			}

			fields[key] = parsed
		}
	}

	return records, nil
}
