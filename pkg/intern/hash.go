// ABOUTME: Hash-keyed interner backed by a map and a read/write mutex
// ABOUTME: Misses re-check under the write lock before publishing

package intern

import "sync"

// Hash is a map-backed Interner.
type Hash[K comparable, V any] struct {
	mu       sync.RWMutex
	entries  map[K]V
	capacity int
	observer Observer
}

// NewHash creates an empty hash interner.
func NewHash[K comparable, V any](opts ...Option) *Hash[K, V] {
	o := buildOptions(opts)
	return &Hash[K, V]{
		entries:  make(map[K]V, o.capacity),
		capacity: o.capacity,
		observer: o.observer,
	}
}

// NewStrings creates a hash interner for strings.
func NewStrings(opts ...Option) *Hash[string, string] {
	return NewHash[string, string](opts...)
}

// Intern returns the canonical value for key.
func (h *Hash[K, V]) Intern(key K, value V) V {
	h.mu.RLock()
	existing, ok := h.entries[key]
	h.mu.RUnlock()
	if ok {
		h.observer.Hit()
		return existing
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Another writer may have published the key between the two locks.
	if existing, ok := h.entries[key]; ok {
		h.observer.Hit()
		return existing
	}
	h.entries[key] = value
	h.observer.Miss()
	return value
}

// Lookup returns the canonical value for key.
func (h *Hash[K, V]) Lookup(key K) (V, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.entries[key]
	return v, ok
}

// Len returns the number of entries.
func (h *Hash[K, V]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Clear removes all entries.
func (h *Hash[K, V]) Clear() {
	h.mu.Lock()
	n := len(h.entries)
	h.entries = make(map[K]V, h.capacity)
	h.mu.Unlock()
	h.observer.Cleared(n)
}
