// ABOUTME: Coalescing merge of per-container update ids into one snapshot string
// ABOUTME: Last value per id wins; ids keep first-seen order

package moderation

import (
	"strings"

	"github.com/nainya/didlcore/pkg/didlerr"
)

// DefaultDelimiter separates records and the id/token of a record.
const DefaultDelimiter = ","

// Update is one container update record.
type Update struct {
	ID    string
	Token string
}

// Accumulator merges update fragments into snapshots. It holds no state;
// Merge is a pure function of its inputs.
type Accumulator struct {
	// Delimiter separates records.
	Delimiter string

	// PairDelimiter separates the id from the token within a record.
	PairDelimiter string

	// CollapseOnEmpty makes an empty fragment reset the snapshot to "".
	// When false an empty fragment leaves the snapshot unchanged.
	CollapseOnEmpty bool
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithDelimiter sets the record delimiter.
func WithDelimiter(d string) Option {
	return func(a *Accumulator) { a.Delimiter = d }
}

// WithPairDelimiter sets the id/token delimiter.
func WithPairDelimiter(d string) Option {
	return func(a *Accumulator) { a.PairDelimiter = d }
}

// WithCollapseOnEmpty sets the empty-fragment behavior.
func WithCollapseOnEmpty(collapse bool) Option {
	return func(a *Accumulator) { a.CollapseOnEmpty = collapse }
}

// NewAccumulator creates an Accumulator with "," delimiters and
// collapse-on-empty enabled.
func NewAccumulator(opts ...Option) *Accumulator {
	a := &Accumulator{
		Delimiter:       DefaultDelimiter,
		PairDelimiter:   DefaultDelimiter,
		CollapseOnEmpty: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Accumulator) delimiters() (string, string) {
	d, p := a.Delimiter, a.PairDelimiter
	if d == "" {
		d = DefaultDelimiter
	}
	if p == "" {
		p = d
	}
	return d, p
}

// Parse splits a snapshot into records. Duplicate ids keep their first
// position and their last token. Empty ids or tokens are rejected.
func (a *Accumulator) Parse(snapshot string) ([]Update, error) {
	if snapshot == "" {
		return nil, nil
	}
	d, p := a.delimiters()

	var updates []Update
	index := make(map[string]int)
	add := func(id, token string) error {
		if id == "" {
			return didlerr.Validation("parse update snapshot", snapshot, "empty entity id")
		}
		if token == "" {
			return didlerr.Validation("parse update snapshot", snapshot, "empty update token for "+id)
		}
		if i, ok := index[id]; ok {
			updates[i].Token = token
			return nil
		}
		index[id] = len(updates)
		updates = append(updates, Update{ID: id, Token: token})
		return nil
	}

	if d == p {
		fields := strings.Split(snapshot, d)
		if len(fields)%2 != 0 {
			return nil, didlerr.Validation("parse update snapshot", snapshot, "unpaired entity id")
		}
		for i := 0; i < len(fields); i += 2 {
			if err := add(fields[i], fields[i+1]); err != nil {
				return nil, err
			}
		}
		return updates, nil
	}

	for _, rec := range strings.Split(snapshot, d) {
		id, token, ok := strings.Cut(rec, p)
		if !ok || strings.Contains(token, p) {
			return nil, didlerr.Validation("parse update snapshot", snapshot, "malformed record "+rec)
		}
		if err := add(id, token); err != nil {
			return nil, err
		}
	}
	return updates, nil
}

// Format serializes records in order.
func (a *Accumulator) Format(updates []Update) string {
	d, p := a.delimiters()
	var b strings.Builder
	for i, u := range updates {
		if i > 0 {
			b.WriteString(d)
		}
		b.WriteString(u.ID)
		b.WriteString(p)
		b.WriteString(u.Token)
	}
	return b.String()
}

// Merge applies a single-record fragment to the current snapshot and returns
// the new snapshot. On error nothing is returned and current stays valid.
func (a *Accumulator) Merge(current, fragment string) (string, error) {
	if fragment == "" {
		if a.CollapseOnEmpty {
			return a.Reset(), nil
		}
		if _, err := a.Parse(current); err != nil {
			return "", err
		}
		return current, nil
	}

	updates, err := a.Parse(current)
	if err != nil {
		return "", err
	}
	incoming, err := a.Parse(fragment)
	if err != nil {
		return "", err
	}
	if len(incoming) != 1 || a.recordCount(fragment) != 1 {
		return "", didlerr.Validation("merge update fragment", fragment, "fragment must hold exactly one record")
	}

	u := incoming[0]
	for i := range updates {
		if updates[i].ID == u.ID {
			updates[i].Token = u.Token
			return a.Format(updates), nil
		}
	}
	return a.Format(append(updates, u)), nil
}

// recordCount counts the records in s, duplicates included.
func (a *Accumulator) recordCount(s string) int {
	d, p := a.delimiters()
	n := strings.Count(s, d) + 1
	if d == p {
		return n / 2
	}
	return n
}

// Reset returns the empty snapshot.
func (a *Accumulator) Reset() string {
	return ""
}
