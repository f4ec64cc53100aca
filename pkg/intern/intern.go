// ABOUTME: Content-addressed value interning with canonical shared instances
// ABOUTME: Hash-keyed and ordered variants, safe for concurrent use

// Package intern maps values to canonical shared instances.
//
// The first value stored for a key becomes canonical; every later Intern
// call with an equal key returns that instance. Both implementations use a
// shared-read/exclusive-write lock and re-check the key under the exclusive
// lock before inserting, so racing inserts of the same new key agree on a
// single canonical value.
package intern

// Interner maps keys to canonical values.
type Interner[K comparable, V any] interface {
	// Intern returns the canonical value for key, storing value if the key is new.
	Intern(key K, value V) V

	// Lookup returns the canonical value for key without inserting.
	Lookup(key K) (V, bool)

	// Len returns the number of canonical entries.
	Len() int

	// Clear removes all entries.
	Clear()
}

// Strings interns strings keyed by themselves.
type Strings = Interner[string, string]

// Value interns a self-keyed value.
func Value[K comparable](in Interner[K, K], v K) K {
	return in.Intern(v, v)
}

// Observer receives cache activity notifications.
// Implementations must be safe for concurrent use.
type Observer interface {
	Hit()
	Miss()
	Cleared(entries int)
}

type nopObserver struct{}

func (nopObserver) Hit()        {}
func (nopObserver) Miss()       {}
func (nopObserver) Cleared(int) {}

type options struct {
	observer Observer
	capacity int
}

// Option configures an interner.
type Option func(*options)

// WithObserver attaches an activity observer.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		if o != nil {
			opts.observer = o
		}
	}
}

// WithCapacity preallocates room for n entries.
func WithCapacity(n int) Option {
	return func(opts *options) {
		if n > 0 {
			opts.capacity = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
