// ABOUTME: Ordered interner backed by a sorted slice with binary search
// ABOUTME: Smaller footprint than the hash variant at O(log n) lookups

package intern

import (
	"cmp"
	"slices"
	"sync"
)

type entry[K cmp.Ordered, V any] struct {
	key   K
	value V
}

// Ordered is an Interner that keeps entries sorted by key.
type Ordered[K cmp.Ordered, V any] struct {
	mu       sync.RWMutex
	entries  []entry[K, V]
	capacity int
	observer Observer
}

// NewOrdered creates an empty ordered interner.
func NewOrdered[K cmp.Ordered, V any](opts ...Option) *Ordered[K, V] {
	o := buildOptions(opts)
	return &Ordered[K, V]{
		entries:  make([]entry[K, V], 0, o.capacity),
		capacity: o.capacity,
		observer: o.observer,
	}
}

func (o *Ordered[K, V]) search(key K) (int, bool) {
	return slices.BinarySearchFunc(o.entries, key, func(e entry[K, V], k K) int {
		return cmp.Compare(e.key, k)
	})
}

// Intern returns the canonical value for key.
func (o *Ordered[K, V]) Intern(key K, value V) V {
	o.mu.RLock()
	if i, ok := o.search(key); ok {
		v := o.entries[i].value
		o.mu.RUnlock()
		o.observer.Hit()
		return v
	}
	o.mu.RUnlock()

	o.mu.Lock()
	defer o.mu.Unlock()

	// Re-search: the slice may have changed while unlocked.
	i, ok := o.search(key)
	if ok {
		o.observer.Hit()
		return o.entries[i].value
	}
	o.entries = slices.Insert(o.entries, i, entry[K, V]{key: key, value: value})
	o.observer.Miss()
	return value
}

// Lookup returns the canonical value for key.
func (o *Ordered[K, V]) Lookup(key K) (V, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if i, ok := o.search(key); ok {
		return o.entries[i].value, true
	}
	var zero V
	return zero, false
}

// Len returns the number of entries.
func (o *Ordered[K, V]) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.entries)
}

// Keys returns a copy of the keys in ascending order.
func (o *Ordered[K, V]) Keys() []K {
	o.mu.RLock()
	defer o.mu.RUnlock()
	keys := make([]K, len(o.entries))
	for i, e := range o.entries {
		keys[i] = e.key
	}
	return keys
}

// Clear removes all entries.
func (o *Ordered[K, V]) Clear() {
	o.mu.Lock()
	n := len(o.entries)
	o.entries = make([]entry[K, V], 0, o.capacity)
	o.mu.Unlock()
	o.observer.Cleared(n)
}
