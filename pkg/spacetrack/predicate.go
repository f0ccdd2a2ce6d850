package spacetrack

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PredicateType is the parsed type of a predicate. Types reported by the
// server that have no mapping keep their remote name.
type PredicateType string

// Known predicate types.
const (
	TypeStr      PredicateType = "str"
	TypeInt      PredicateType = "int"
	TypeFloat    PredicateType = "float"
	TypeDate     PredicateType = "date"
	TypeDatetime PredicateType = "datetime"
	TypeEnum     PredicateType = "enum"
	TypeBytes    PredicateType = "bytes"
)

var remoteTypes = map[string]PredicateType{
	"char":       TypeStr,
	"varchar":    TypeStr,
	"longtext":   TypeStr,
	"mediumtext": TypeStr,
	"text":       TypeStr,
	// varbinary only appears on the file_link predicate of file.
	"varbinary": TypeStr,
	"bigint":    TypeInt,
	"int":       TypeInt,
	"tinyint":   TypeInt,
	"smallint":  TypeInt,
	"mediumint": TypeInt,
	"decimal":   TypeFloat,
	"float":     TypeFloat,
	"double":    TypeFloat,
	"date":      TypeDate,
	"timestamp": TypeDatetime,
	"datetime":  TypeDatetime,
	"enum":      TypeEnum,
	"longblob":  TypeBytes,
}

var (
	typeRe      = regexp.MustCompile(`^(\w+)`)
	enumRe      = regexp.MustCompile(`^enum\('(\w+)'(?:,'(\w+)')*\)`)
	enumValueRe = regexp.MustCompile(`'(\w+)'`)
)

// Predicate describes one field a request class accepts. Predicates are
// values; the client hands out copies.
type Predicate struct {
	Name     string
	Type     PredicateType
	Nullable bool
	Default  *string
	// Values lists the allowed values of an enum predicate. Nil otherwise.
	Values []string
}

// String renders the predicate for diagnostics.
func (p Predicate) String() string {
	def := "nil"
	if p.Default != nil {
		def = strconv.Quote(*p.Default)
	}

	s := fmt.Sprintf("Predicate(name=%q, type=%q, nullable=%t, default=%s", p.Name, p.Type, p.Nullable, def)
	if p.Values != nil {
		quoted := make([]string, len(p.Values))
		for i, v := range p.Values {
			quoted[i] = strconv.Quote(v)
		}

		s += ", values=(" + strings.Join(quoted, ", ") + ")"
	}

	return s + ")"
}

// Clone returns a deep copy.
func (p Predicate) Clone() Predicate {
	if p.Default != nil {
		def := *p.Default
		p.Default = &def
	}

	if p.Values != nil {
		p.Values = append([]string(nil), p.Values...)
	}

	return p
}

// Parse converts a raw value of this predicate to a typed value:
// int64 for int, float64 for float, time.Time for datetime and Date for
// date. Nil stays nil and every other type is returned unchanged.
func (p Predicate) Parse(value any) (any, error) {
	if value == nil {
		return nil, nil //nolint:nilnil // a null field parses to nil
	}

	switch p.Type {
	case TypeFloat:
		return parseFloat(p.Name, value)
	case TypeInt:
		return parseInt(p.Name, value)
	case TypeDatetime:
		return parseDatetime(p.Name, value)
	case TypeDate:
		t, err := parseDatetime(p.Name, value)
		if err != nil {
			return nil, err
		}

		return DateOf(t), nil
	case TypeStr, TypeEnum, TypeBytes:
		return value, nil
	default:
		return value, nil
	}
}

func parseFloat(name string, value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case json.Number:
		return parseFloatString(name, string(v))
	case string:
		return parseFloatString(name, v)
	}

	return 0, fmt.Errorf("%w: %s: cannot convert %T to float", ErrInvalidValue, name, value)
}

func parseFloatString(name, s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidValue, name, err)
	}

	return f, nil
}

func parseInt(name string, value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case json.Number:
		return parseIntString(name, string(v))
	case string:
		return parseIntString(name, v)
	}

	return 0, fmt.Errorf("%w: %s: cannot convert %T to int", ErrInvalidValue, name, value)
}

func parseIntString(name, s string) (int64, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidValue, name, err)
	}

	return i, nil
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02T15",
	"2006-01-02",
	"20060102T150405",
	"20060102",
}

func parseDatetime(name string, value any) (time.Time, error) {
	s, ok := value.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s: cannot convert %T to datetime", ErrInvalidValue, name, value)
	}

	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %s: %q is not an ISO 8601 date or time", ErrInvalidValue, name, s)
}

// FieldDescriptor is one row of a modeldef response.
type FieldDescriptor struct {
	Field   string `json:"Field"`
	Type    string `json:"Type"`
	Null    string `json:"Null"`
	Default any    `json:"Default"`
}

// ParsePredicates converts modeldef rows to predicates. Names are lowered.
// Unknown remote types are kept as-is and reported through logger.Warn.
func ParsePredicates(fields []FieldDescriptor, logger Logger) ([]Predicate, error) {
	if logger == nil {
		logger = NopLogger{}
	}

	predicates := make([]Predicate, 0, len(fields))

	for _, field := range fields {
		match := typeRe.FindStringSubmatch(field.Type)
		if match == nil {
			return nil, fmt.Errorf("%w: couldn't parse field type '%s'", ErrInvalidPredicateType, field.Type)
		}

		typeName := match[1]

		typ, known := remoteTypes[typeName]
		if !known {
			logger.Warn("Unknown predicate type", map[string]interface{}{
				"field": field.Field,
				"type":  typeName,
			})

			typ = PredicateType(typeName)
		}

		predicate := Predicate{
			Name:     strings.ToLower(field.Field),
			Type:     typ,
			Nullable: field.Null == "YES",
			Default:  defaultString(field.Default),
		}

		if typeName == "enum" {
			if !enumRe.MatchString(field.Type) {
				return nil, fmt.Errorf("%w: couldn't parse enum type '%s'", ErrInvalidEnum, field.Type)
			}

			matches := enumValueRe.FindAllStringSubmatch(field.Type, -1)

			predicate.Values = make([]string, len(matches))
			for i, m := range matches {
				predicate.Values[i] = m[1]
			}
		}

		predicates = append(predicates, predicate)
	}

	return predicates, nil
}

func defaultString(value any) *string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return &v
	default:
		s := fmt.Sprint(v)

		return &s
	}
}
