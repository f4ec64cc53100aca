// ABOUTME: Sort expression parser and multi-key comparator
// ABOUTME: Keys apply in declared order; the first non-zero result wins

package sortcrit

import (
	"math/big"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/nainya/didlcore/pkg/didl"
	"github.com/nainya/didlcore/pkg/didlerr"
)

// Parse parses a comma-delimited list of signed property names such as
// "+dc:title,-dc:creator". An empty or blank expression yields no keys.
func Parse(expr string) ([]SortKey, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	tokens := strings.Split(expr, ",")
	keys := make([]SortKey, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return nil, didlerr.Parse("parse sort criteria", expr, "empty sort key")
		}
		var asc bool
		switch tok[0] {
		case FlagAscending:
			asc = true
		case FlagDescending:
		default:
			return nil, didlerr.Parse("parse sort criteria", tok, "invalid sort flag")
		}
		property := strings.TrimSpace(tok[1:])
		if property == "" {
			return nil, didlerr.Parse("parse sort criteria", tok, "missing property after sort flag")
		}
		keys = append(keys, SortKey{Property: property, Ascending: asc})
	}
	return keys, nil
}

// CompileRecorder receives compilation outcomes. *metrics.Metrics satisfies it.
type CompileRecorder interface {
	RecordCompile(status string)
}

// Compile parses expr and returns its comparator. A non-nil recorder is
// told whether compilation succeeded.
func Compile(expr string, forceDistinction bool, recorder CompileRecorder) (*Comparator, error) {
	keys, err := Parse(expr)
	if recorder != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		recorder.RecordCompile(status)
	}
	if err != nil {
		return nil, err
	}
	return New(keys, forceDistinction), nil
}

// Comparator orders records by a list of sort keys. It is immutable and
// safe for concurrent use.
type Comparator struct {
	keys             []SortKey
	forceDistinction bool
}

// New creates a comparator from keys.
func New(keys []SortKey, forceDistinction bool) *Comparator {
	return &Comparator{keys: slices.Clone(keys), forceDistinction: forceDistinction}
}

// Keys returns the comparator's sort keys.
func (c *Comparator) Keys() []SortKey {
	return slices.Clone(c.keys)
}

// String renders the comparator's expression.
func (c *Comparator) String() string {
	return Expression(c.keys)
}

// Compare returns a negative number when a sorts before b and a positive
// number when after. Records with no value for a key sort first. When all
// keys tie and force distinction is on, the result is ForcedOrder.
func (c *Comparator) Compare(a, b Record) int {
	if r := c.compareKeys(a, b); r != 0 {
		return r
	}
	if c.forceDistinction {
		return ForcedOrder
	}
	return 0
}

func (c *Comparator) compareKeys(a, b Record) int {
	for _, k := range c.keys {
		r := compareValues(a.Values(k.Property), b.Values(k.Property))
		if r == 0 {
			continue
		}
		if !k.Ascending {
			r = -r
		}
		return r
	}
	return 0
}

// compareValues compares the first value of each side.
func compareValues(av, bv []didl.Element) int {
	switch {
	case len(av) == 0 && len(bv) == 0:
		return 0
	case len(av) == 0:
		return -1
	case len(bv) == 0:
		return 1
	}
	a, b := av[0], bv[0]
	if a.Kind() != b.Kind() {
		return compareAcrossKinds(a, b)
	}
	r, err := a.CompareTo(b)
	if err != nil {
		return strings.Compare(fold(a.StringValue()), fold(b.StringValue()))
	}
	switch {
	case r < 0:
		return -1
	case r > 0:
		return 1
	}
	return 0
}

// compareAcrossKinds orders values of different variants. Integers of
// different widths compare by magnitude; any other pairing compares as
// folded text so the result is the same from either side.
func compareAcrossKinds(a, b didl.Element) int {
	if a.Kind().Numeric() && b.Kind().Numeric() {
		x, okA := new(big.Int).SetString(a.StringValue(), 10)
		y, okB := new(big.Int).SetString(b.StringValue(), 10)
		if okA && okB {
			return x.Cmp(y)
		}
	}
	return strings.Compare(fold(a.StringValue()), fold(b.StringValue()))
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// Sort orders records in place. The sort is stable: records tying on every
// key keep their input order regardless of force distinction.
func Sort[R Record](c *Comparator, records []R) {
	slices.SortStableFunc(records, func(a, b R) int {
		return c.compareKeys(a, b)
	})
}
