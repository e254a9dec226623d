// Package memtier implements the bounded, LRU-ordered in-process tier of the
// cache. It holds entry metadata only - artifact bytes always come from the
// durable tier - and exists so repeated lookups for hot keys never touch the
// index or the filesystem metadata path.
//
// Insertion order is irrelevant; access-time order is load-bearing. The tier
// tracks a last-access timestamp per key in a priority queue and, when it
// exceeds its capacity, evicts the entries with the oldest access time.
// Eviction only drops metadata from memory: the artifact stays in the
// durable tier and the entry is reconstructed lazily on the next lookup.
//
// All state is protected by a single mutex covering the whole tier. The
// operations are O(log n) worst case and the tier is bounded to a few dozen
// entries, so contention on this lock is not a concern.
package memtier

import (
	"sync"
	"time"

	"github.com/c-colloid/previewcache/lib/cache/util"
)

// Tier is the bounded LRU metadata cache. Must be created via New, the zero
// value is not usable.
//
// Thread-safety: all methods are safe for concurrent use.
type Tier[V any] struct {
	mu      sync.Mutex
	max     int
	entries map[string]V
	access  *util.MapHeap[string] // key -> last-access unix nanos
}

// New creates a tier bounded to max entries (values below 1 are clamped)
func New[V any](max int) *Tier[V] {
	if max < 1 {
		max = 1
	}
	return &Tier[V]{
		max:     max,
		entries: make(map[string]V, max),
		access:  util.NewMapHeap[string](),
	}
}

// Get returns the entry for key and refreshes its access time on hit
func (t *Tier[V]) Get(key string) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.entries[key]
	if ok {
		t.access.AddItem(key, time.Now().UnixNano())
	}
	return v, ok
}

// Put inserts or replaces the entry for key, refreshes its access time and
// trims the tier back to its capacity
func (t *Tier[V]) Put(key string, v V) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[key] = v
	t.access.AddItem(key, time.Now().UnixNano())
	t.trimLocked()
}

// trimLocked evicts the oldest-access entries until the tier is within its
// capacity again. Eviction never touches the durable tier.
func (t *Tier[V]) trimLocked() {
	for len(t.entries) > t.max {
		key, _, ok := t.access.PopMin()
		if !ok {
			return
		}
		delete(t.entries, key)
	}
}

// Remove deletes the entry for key. Returns whether the key was present.
func (t *Tier[V]) Remove(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[key]; !ok {
		return false
	}
	delete(t.entries, key)
	t.access.RemoveByKey(key)
	return true
}

// Count returns the current number of entries
func (t *Tier[V]) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Contains checks whether key is present without refreshing its access time
func (t *Tier[V]) Contains(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[key]
	return ok
}

// Keys returns all keys currently held, in no particular order
func (t *Tier[V]) Keys() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	return keys
}

// Purge removes all entries
func (t *Tier[V]) Purge() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = make(map[string]V, t.max)
	t.access = util.NewMapHeap[string]()
}
