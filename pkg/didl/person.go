// ABOUTME: Person element with an optional role attribute
// ABOUTME: Used for upnp:artist, upnp:actor and upnp:author

package didl

import (
	"github.com/nainya/didlcore/pkg/didlerr"
)

// RoleAttribute is the only attribute a PersonWithRole may carry.
const RoleAttribute = "role"

var personAttributes = []string{RoleAttribute}

// Person is the raw payload of a PersonWithRole element.
type Person struct {
	Name string
	Role string
}

// PersonWithRole names a person and, optionally, their role.
type PersonWithRole struct {
	name   string
	person Person
}

func (e *PersonWithRole) Name() string                 { return e.name }
func (e *PersonWithRole) Kind() Kind                   { return KindPersonWithRole }
func (e *PersonWithRole) Value() any                   { return e.person }
func (e *PersonWithRole) ComparableValue() any         { return fold(e.person.Name) }
func (e *PersonWithRole) StringValue() string          { return e.person.Name }
func (e *PersonWithRole) Role() string                 { return e.person.Role }
func (e *PersonWithRole) PossibleAttributes() []string { return personAttributes }

func (e *PersonWithRole) ValidAttributes() []string {
	if e.person.Role == "" {
		return nil
	}
	return personAttributes
}

func (e *PersonWithRole) Attributes() []AttributeDescriptor {
	return describeAttributes(e)
}

func (e *PersonWithRole) ExtractAttribute(name string) (string, bool) {
	if name == RoleAttribute || name == e.name+"@"+RoleAttribute {
		return e.person.Role, e.person.Role != ""
	}
	return "", false
}

// CompareTo orders by name, then by role, both ignoring case.
func (e *PersonWithRole) CompareTo(other any) (int, error) {
	switch o := other.(type) {
	case *PersonWithRole:
		if c := foldCompare(e.person.Name, o.person.Name); c != 0 {
			return c, nil
		}
		return foldCompare(e.person.Role, o.person.Role), nil
	case Person:
		if c := foldCompare(e.person.Name, o.Name); c != 0 {
			return c, nil
		}
		return foldCompare(e.person.Role, o.Role), nil
	}
	s, ok := coerceString(other)
	if !ok {
		return 0, didlerr.TypeMismatch("compare "+e.name, "person", other)
	}
	return foldCompare(e.person.Name, s), nil
}

func (e *PersonWithRole) WriteStart(w *Writer, opts *WriteOptions) error { return writeStart(e, w, opts) }
func (e *PersonWithRole) WriteValue(w *Writer, _ *WriteOptions) error    { return writeText(e, w) }
func (e *PersonWithRole) WriteEnd(w *Writer, _ *WriteOptions) error      { return writeEnd(e, w) }
