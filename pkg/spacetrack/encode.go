package spacetrack

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// NullValue is the wire token for an absent value.
const NullValue = "null-val"

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the date t falls on in its own location.
func DateOf(t time.Time) Date {
	year, month, day := t.Date()

	return Date{Year: year, Month: month, Day: day}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// EncodeValue renders a predicate value the way Space-Track expects it in a
// query path: booleans in lower case, nil as NullValue, dates as
// YYYY-MM-DD, times as "YYYY-MM-DD HH:MM:SS[.ffffff]" and slices as the
// comma-joined encoding of their elements. Times in UTC carry no offset;
// any other location, time.Local included, is written with a +HH:MM
// suffix. Call UTC first for the plain form.
func EncodeValue(value any) string {
	switch v := value.(type) {
	case nil:
		return NullValue
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	case []byte:
		return string(v)
	case Date:
		return v.String()
	case time.Time:
		return encodeTime(v)
	case *time.Time:
		if v == nil {
			return NullValue
		}

		return encodeTime(*v)
	case fmt.Stringer:
		return v.String()
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return NullValue
		}

		return EncodeValue(rv.Elem().Interface())
	}

	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, rv.Len())
		for i := range rv.Len() {
			parts[i] = EncodeValue(rv.Index(i).Interface())
		}

		return strings.Join(parts, ",")
	}

	return fmt.Sprint(value)
}

func encodeTime(t time.Time) string {
	layout := "2006-01-02 15:04:05"
	if t.Nanosecond()/int(time.Microsecond) != 0 {
		layout += ".000000"
	}

	if t.Location() == time.UTC {
		return t.Format(layout)
	}

	return t.Format(layout + "-07:00")
}

// EscapePathSegment percent-encodes every byte outside the unreserved set
// (letters, digits and -._~), including '/'.
func EscapePathSegment(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder

	b.Grow(len(s))

	for i := range len(s) {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)

			continue
		}

		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}

	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}

	return false
}
