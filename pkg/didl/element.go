// ABOUTME: Immutable metadata element contract shared by all variants
// ABOUTME: Comparison, attribute reporting and default three-phase emission

package didl

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Element is an immutable, typed metadata value bound to a property name.
// Elements are safe for concurrent reads once constructed.
type Element interface {
	Emitter

	// Name is the namespace-qualified property name (e.g. "dc:title", "res@size").
	Name() string
	Kind() Kind

	// Value returns the typed payload.
	Value() any

	// ComparableValue returns the payload in the form used for ordering.
	ComparableValue() any

	// StringValue returns the wire form of the payload.
	StringValue() string

	// PossibleAttributes lists every attribute the variant may carry.
	PossibleAttributes() []string

	// ValidAttributes lists the attributes populated on this instance.
	ValidAttributes() []string

	// Attributes describes PossibleAttributes with their status on this instance.
	Attributes() []AttributeDescriptor

	// ExtractAttribute returns the value of a populated attribute.
	ExtractAttribute(name string) (string, bool)

	// CompareTo orders the element against another element or a raw value.
	// Incompatible operands are coerced through their string form before
	// a TypeMismatchError is returned.
	CompareTo(other any) (int, error)
}

// AttributeStatus tells whether an attribute is merely legal or also populated.
type AttributeStatus int

const (
	AttributePossible AttributeStatus = iota
	AttributeValid
)

func (s AttributeStatus) String() string {
	if s == AttributeValid {
		return "valid"
	}
	return "possible"
}

// AttributeDescriptor pairs an attribute name with its status.
type AttributeDescriptor struct {
	Name   string
	Status AttributeStatus
}

func describeAttributes(e Element) []AttributeDescriptor {
	possible := e.PossibleAttributes()
	if len(possible) == 0 {
		return nil
	}
	valid := make(map[string]bool)
	for _, name := range e.ValidAttributes() {
		valid[name] = true
	}
	out := make([]AttributeDescriptor, len(possible))
	for i, name := range possible {
		out[i] = AttributeDescriptor{Name: name, Status: AttributePossible}
		if valid[name] {
			out[i].Status = AttributeValid
		}
	}
	return out
}

// simple provides the parts of Element shared by attribute-less variants.
type simple struct {
	name string
}

func (s simple) Name() string                           { return s.name }
func (s simple) PossibleAttributes() []string           { return nil }
func (s simple) ValidAttributes() []string              { return nil }
func (s simple) Attributes() []AttributeDescriptor      { return nil }
func (s simple) ExtractAttribute(string) (string, bool) { return "", false }

// writeStart opens the element tag; attributes are filtered by opts.Desired.
func writeStart(e Element, w *Writer, opts *WriteOptions) error {
	var attrs []Attr
	for _, name := range e.ValidAttributes() {
		if !opts.Desired.Includes(e.Name() + "@" + name) {
			continue
		}
		v, _ := e.ExtractAttribute(name)
		attrs = append(attrs, Attr{Name: name, Value: v})
	}
	return w.Start(e.Name(), attrs...)
}

func writeText(e Element, w *Writer) error {
	return w.Text(e.StringValue())
}

func writeEnd(e Element, w *Writer) error {
	return w.End(e.Name())
}

// foldCompare compares two strings ignoring case.
func foldCompare(a, b string) int {
	if a == b {
		return 0
	}
	return strings.Compare(fold(a), fold(b))
}

// fold returns the case-folded form of s. A Caser is not safe for
// concurrent use, so one is created per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// coerceString returns the string form of a comparison operand.
func coerceString(other any) (string, bool) {
	switch v := other.(type) {
	case string:
		return v, true
	case Element:
		return v.StringValue(), true
	case fmt.Stringer:
		return v.String(), true
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), true
	}
	return "", false
}
