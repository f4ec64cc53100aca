// ABOUTME: Sort key types, sortable record contract and preset criteria
// ABOUTME: Fluent builder for sort expressions

package sortcrit

import (
	"strings"

	"github.com/nainya/didlcore/pkg/didl"
	"github.com/nainya/didlcore/pkg/didlerr"
)

// Direction flags in a sort expression.
const (
	FlagAscending  = '+'
	FlagDescending = '-'
)

// ForcedOrder is returned by a force-distinction comparator when every key ties.
const ForcedOrder = 1

// SortKey is one (property, direction) pair.
type SortKey struct {
	Property  string
	Ascending bool
}

func (k SortKey) String() string {
	if k.Ascending {
		return string(FlagAscending) + k.Property
	}
	return string(FlagDescending) + k.Property
}

// Record is anything with property values to sort on. *didl.Object
// implements it.
type Record interface {
	Values(property string) []didl.Element
}

// Expression renders keys back to the "+a,-b" grammar.
func Expression(keys []SortKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, ",")
}

// Preset criteria.
var (
	ByID                = mustParse("+" + didl.PropID)
	ByTitle             = mustParse("+" + didl.PropTitle)
	ByCreator           = mustParse("+" + didl.PropCreator)
	ByCreatorTitle      = mustParse("+" + didl.PropCreator + ",+" + didl.PropTitle)
	ByClassCreatorTitle = mustParse("+" + didl.PropClass + ",+" + didl.PropCreator + ",+" + didl.PropTitle)
)

func mustParse(expr string) []SortKey {
	keys, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return keys
}

// Builder provides a fluent interface for building comparators
type Builder struct {
	keys  []SortKey
	force bool
}

// NewBuilder creates a new comparator builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Ascending adds an ascending key
func (b *Builder) Ascending(property string) *Builder {
	b.keys = append(b.keys, SortKey{Property: property, Ascending: true})
	return b
}

// Descending adds a descending key
func (b *Builder) Descending(property string) *Builder {
	b.keys = append(b.keys, SortKey{Property: property})
	return b
}

// Keys appends parsed keys
func (b *Builder) Keys(keys ...SortKey) *Builder {
	b.keys = append(b.keys, keys...)
	return b
}

// ForceDistinction makes full ties compare as ForcedOrder
func (b *Builder) ForceDistinction(force bool) *Builder {
	b.force = force
	return b
}

// Build returns the comparator. Blank property names are rejected.
func (b *Builder) Build() (*Comparator, error) {
	for _, k := range b.keys {
		if strings.TrimSpace(k.Property) == "" {
			return nil, didlerr.Validation("build sort criteria", Expression(b.keys), "empty property name")
		}
	}
	return New(b.keys, b.force), nil
}
