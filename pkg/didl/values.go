// ABOUTME: Scalar element variants: string, bool, integers, date and URI
// ABOUTME: Each variant parses from text and compares by its natural order

package didl

import (
	"cmp"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nainya/didlcore/pkg/didlerr"
)

// String is a text element compared case-insensitively.
type String struct {
	simple
	value string
}

func (e *String) Kind() Kind           { return KindString }
func (e *String) Value() any           { return e.value }
func (e *String) ComparableValue() any { return fold(e.value) }
func (e *String) StringValue() string  { return e.value }

func (e *String) CompareTo(other any) (int, error) {
	s, ok := coerceString(other)
	if !ok {
		return 0, didlerr.TypeMismatch("compare "+e.name, "string", other)
	}
	return foldCompare(e.value, s), nil
}

func (e *String) WriteStart(w *Writer, opts *WriteOptions) error { return writeStart(e, w, opts) }
func (e *String) WriteValue(w *Writer, _ *WriteOptions) error    { return writeText(e, w) }
func (e *String) WriteEnd(w *Writer, _ *WriteOptions) error      { return writeEnd(e, w) }

// Bool is a boolean element serialized as lowercase true/false.
type Bool struct {
	simple
	value bool
}

// ParseBool accepts true/false, 1/0 and yes/no in any case.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, didlerr.Parse("parse bool", s, "not a boolean")
}

func (e *Bool) Kind() Kind           { return KindBool }
func (e *Bool) Value() any           { return e.value }
func (e *Bool) ComparableValue() any { return e.value }
func (e *Bool) StringValue() string  { return strconv.FormatBool(e.value) }
func (e *Bool) Bool() bool           { return e.value }

func (e *Bool) CompareTo(other any) (int, error) {
	var v bool
	switch o := other.(type) {
	case *Bool:
		v = o.value
	case bool:
		v = o
	default:
		s, ok := coerceString(other)
		if !ok {
			return 0, didlerr.TypeMismatch("compare "+e.name, "bool", other)
		}
		parsed, err := ParseBool(s)
		if err != nil {
			return 0, didlerr.TypeMismatch("compare "+e.name, "bool", other)
		}
		v = parsed
	}
	return compareBool(e.value, v), nil
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func (e *Bool) WriteStart(w *Writer, opts *WriteOptions) error { return writeStart(e, w, opts) }
func (e *Bool) WriteValue(w *Writer, _ *WriteOptions) error    { return writeText(e, w) }
func (e *Bool) WriteEnd(w *Writer, _ *WriteOptions) error      { return writeEnd(e, w) }

// Integer is the set of payload types carried by numeric elements.
type Integer interface {
	int32 | uint32 | int64 | uint64
}

// Number is a numeric element; the payload type selects the variant.
type Number[T Integer] struct {
	simple
	value T
}

type (
	UnsignedInt  = Number[uint32]
	Int          = Number[int32]
	UnsignedLong = Number[uint64]
	Long         = Number[int64]
)

// parseNumber parses s into T with range checking.
func parseNumber[T Integer](s string) (T, error) {
	s = strings.TrimSpace(s)
	var zero T
	var err error
	switch any(zero).(type) {
	case uint32:
		var v uint64
		v, err = strconv.ParseUint(s, 10, 32)
		if err == nil {
			return T(v), nil
		}
	case uint64:
		var v uint64
		v, err = strconv.ParseUint(s, 10, 64)
		if err == nil {
			return T(v), nil
		}
	case int32:
		var v int64
		v, err = strconv.ParseInt(s, 10, 32)
		if err == nil {
			return T(v), nil
		}
	case int64:
		var v int64
		v, err = strconv.ParseInt(s, 10, 64)
		if err == nil {
			return T(v), nil
		}
	}
	return zero, didlerr.ParseWrap("parse "+numberKind[T]().String(), s, err)
}

func numberKind[T Integer]() Kind {
	var zero T
	switch any(zero).(type) {
	case uint32:
		return KindUnsignedInt
	case int32:
		return KindInt
	case uint64:
		return KindUnsignedLong
	default:
		return KindLong
	}
}

func (e *Number[T]) Kind() Kind           { return numberKind[T]() }
func (e *Number[T]) Value() any           { return e.value }
func (e *Number[T]) ComparableValue() any { return e.value }
func (e *Number[T]) Number() T            { return e.value }

func (e *Number[T]) StringValue() string {
	switch v := any(e.value).(type) {
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

func (e *Number[T]) CompareTo(other any) (int, error) {
	switch o := other.(type) {
	case *Number[T]:
		return cmp.Compare(e.value, o.value), nil
	case T:
		return cmp.Compare(e.value, o), nil
	}
	s, ok := coerceString(other)
	if !ok {
		return 0, didlerr.TypeMismatch("compare "+e.name, e.Kind().String(), other)
	}
	v, err := parseNumber[T](s)
	if err != nil {
		return 0, didlerr.TypeMismatch("compare "+e.name, e.Kind().String(), other)
	}
	return cmp.Compare(e.value, v), nil
}

func (e *Number[T]) WriteStart(w *Writer, opts *WriteOptions) error { return writeStart(e, w, opts) }
func (e *Number[T]) WriteValue(w *Writer, _ *WriteOptions) error    { return writeText(e, w) }
func (e *Number[T]) WriteEnd(w *Writer, _ *WriteOptions) error      { return writeEnd(e, w) }

// Date layouts accepted by ParseDate, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// Date is a calendar date or timestamp element.
type Date struct {
	simple
	value  time.Time
	layout string
}

// layoutFor picks the date-only layout only for a UTC midnight, the one
// instant a bare date parses back to. Everything else keeps its offset.
func layoutFor(t time.Time) string {
	_, offset := t.Zone()
	h, m, sec := t.Clock()
	if offset == 0 && h == 0 && m == 0 && sec == 0 && t.Nanosecond() == 0 {
		return dateLayouts[0]
	}
	return time.RFC3339Nano
}

// ParseDate parses an ISO 8601 date or date-time.
func ParseDate(s string) (time.Time, string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, layout, nil
		}
	}
	return time.Time{}, "", didlerr.Parse("parse date", s, "expected YYYY-MM-DD or RFC 3339")
}

func (e *Date) Kind() Kind           { return KindDate }
func (e *Date) Value() any           { return e.value }
func (e *Date) ComparableValue() any { return e.value }
func (e *Date) Time() time.Time      { return e.value }
func (e *Date) StringValue() string  { return e.value.Format(e.layout) }

func (e *Date) CompareTo(other any) (int, error) {
	switch o := other.(type) {
	case *Date:
		return e.value.Compare(o.value), nil
	case time.Time:
		return e.value.Compare(o), nil
	}
	s, ok := coerceString(other)
	if !ok {
		return 0, didlerr.TypeMismatch("compare "+e.name, "date", other)
	}
	t, _, err := ParseDate(s)
	if err != nil {
		return 0, didlerr.TypeMismatch("compare "+e.name, "date", other)
	}
	return e.value.Compare(t), nil
}

func (e *Date) WriteStart(w *Writer, opts *WriteOptions) error { return writeStart(e, w, opts) }
func (e *Date) WriteValue(w *Writer, _ *WriteOptions) error    { return writeText(e, w) }
func (e *Date) WriteEnd(w *Writer, _ *WriteOptions) error      { return writeEnd(e, w) }

// URI is a URI reference element compared case-sensitively.
type URI struct {
	simple
	value string
}

// ParseURI validates s as a URI reference.
func ParseURI(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", didlerr.Parse("parse uri", s, "empty URI")
	}
	if _, err := url.Parse(s); err != nil {
		return "", didlerr.ParseWrap("parse uri", s, err)
	}
	return s, nil
}

func (e *URI) Kind() Kind           { return KindURI }
func (e *URI) Value() any           { return e.value }
func (e *URI) ComparableValue() any { return e.value }
func (e *URI) StringValue() string  { return e.value }

func (e *URI) CompareTo(other any) (int, error) {
	if u, ok := other.(*url.URL); ok {
		return strings.Compare(e.value, u.String()), nil
	}
	s, ok := coerceString(other)
	if !ok {
		return 0, didlerr.TypeMismatch("compare "+e.name, "uri", other)
	}
	return strings.Compare(e.value, s), nil
}

func (e *URI) WriteStart(w *Writer, opts *WriteOptions) error { return writeStart(e, w, opts) }
func (e *URI) WriteValue(w *Writer, _ *WriteOptions) error    { return writeText(e, w) }
func (e *URI) WriteEnd(w *Writer, _ *WriteOptions) error      { return writeEnd(e, w) }
