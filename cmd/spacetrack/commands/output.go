package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/spacetrack/internal/constants"
)

// Output formats.
const (
	OutputFormatTable = "table"
	OutputFormatJSON  = "json"
	OutputFormatYAML  = "yaml"
	OutputFormatTOML  = "toml"

	defaultJSONIndent = 2
)

func outputFormat() (string, error) {
	format := strings.ToLower(viper.GetString("output"))
	if format == "" {
		return OutputFormatTable, nil
	}

	switch format {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML, OutputFormatTOML:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %s", constants.ErrUnknownOutputFormat, format)
	}
}

// writeOutput encodes v in the selected format. TOML documents need a table
// at the top, so v is stored under key there. render fills the table form.
func writeOutput(w io.Writer, key string, v any, render func(*tablewriter.Table)) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	switch format {
	case OutputFormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", strings.Repeat(" ", defaultJSONIndent))

		return encoder.Encode(v)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(w)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(v)
	case OutputFormatTOML:
		return toml.NewEncoder(w).Encode(map[string]any{key: dropNulls(v)})
	default:
		table := tablewriter.NewWriter(w)
		render(table)

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}

// dropNulls removes null members, which TOML cannot represent.
func dropNulls(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))

		for key, member := range value {
			if member != nil {
				out[key] = dropNulls(member)
			}
		}

		return out
	case []any:
		out := make([]any, 0, len(value))

		for _, member := range value {
			if member != nil {
				out = append(out, dropNulls(member))
			}
		}

		return out
	default:
		return v
	}
}

// renderRecords lays out decoded JSON. A list of objects becomes one row
// per object with the union of their keys as columns; anything else is a
// single value cell.
func renderRecords(data any) func(*tablewriter.Table) {
	return func(table *tablewriter.Table) {
		records, ok := data.([]any)
		if !ok {
			if object, isObject := data.(map[string]any); isObject {
				records = []any{object}
			} else {
				table.Header("Value")
				_ = table.Append(cell(data))

				return
			}
		}

		var columns []string

		for _, record := range records {
			object, _ := record.(map[string]any)
			for key := range object {
				if !slices.Contains(columns, key) {
					columns = append(columns, key)
				}
			}
		}

		slices.Sort(columns)

		header := make([]any, len(columns))
		for i, column := range columns {
			header[i] = column
		}

		table.Header(header...)

		for _, record := range records {
			object, _ := record.(map[string]any)

			row := make([]any, len(columns))
			for i, column := range columns {
				row[i] = cell(object[column])
			}

			_ = table.Append(row...)
		}
	}
}

func cell(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []any, map[string]any:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}

		return string(data)
	default:
		return fmt.Sprint(value)
	}
}
