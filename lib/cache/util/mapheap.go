// Package util
//
// This file provides a specialized priority queue for eviction and cleanup
// purposes.
//
// This implementation combines a binary heap with a hash map to provide both
// efficient priority-based operations and key-based access. It is used to
// order cache entries by last-access time: the memory tier pops the oldest
// entries when it exceeds its capacity, and the maintenance sweep pops the
// oldest entries while the durable tier exceeds its size cap.
//
// Key advantages of this implementation:
//
// 1. Time Complexity:
//   - O(log n) for priority operations (Push, Pop, Update)
//   - O(1) for key-based lookups and existence checks
//   - O(log n) for key-based removal
//
// 2. Eviction Benefits:
//   - Efficiently identifies the oldest/lowest-priority entries for eviction
//   - Supports direct removal when entries are cleared explicitly
//   - Can update priorities when entries are accessed (LRU behavior)
//
// 3. Concurrency Considerations:
//   - Note: This implementation is not thread-safe by default
//   - For concurrent use, external synchronization should be applied
package util

import (
	"container/heap"
)

// item represents an item in the eviction queue with a generic key for
// identification and an int64 priority (typically a unix-nano timestamp)
type item[K comparable] struct {
	key      K     // Unique identifier for the item
	priority int64 // Priority used for ordering in the heap
	index    int   // Index in the heap, maintained by heap package
}

// MapHeap implements a min-priority queue with both heap operations and
// key-based access. The zero value is not usable, use NewMapHeap.
type MapHeap[K comparable] struct {
	items    []*item[K]    // The actual heap slice
	itemsMap map[K]*item[K] // Map for O(1) access by key
}

// NewMapHeap creates a new eviction queue
func NewMapHeap[K comparable]() *MapHeap[K] {
	return &MapHeap[K]{
		items:    make([]*item[K], 0),
		itemsMap: make(map[K]*item[K]),
	}
}

// Len returns the number of items in the queue (part of heap.Interface)
func (mh *MapHeap[K]) Len() int { return len(mh.items) }

// Less compares items by priority (part of heap.Interface)
// The oldest items come first (min-heap by timestamp)
func (mh *MapHeap[K]) Less(i, j int) bool {
	return mh.items[i].priority < mh.items[j].priority
}

// Swap exchanges items at positions i and j (part of heap.Interface)
func (mh *MapHeap[K]) Swap(i, j int) {
	mh.items[i], mh.items[j] = mh.items[j], mh.items[i]
	mh.items[i].index = i
	mh.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface)
func (mh *MapHeap[K]) Push(x interface{}) {
	n := len(mh.items)
	item := x.(*item[K])
	item.index = n
	mh.items = append(mh.items, item)
	mh.itemsMap[item.key] = item
}

// Pop removes and returns the minimum item (part of heap.Interface)
func (mh *MapHeap[K]) Pop() interface{} {
	old := mh.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // Avoid memory leak
	item.index = -1 // For safety
	mh.items = old[:n-1]
	delete(mh.itemsMap, item.key)
	return item
}

// AddItem adds a new item to the queue or updates the priority of an
// existing one
func (mh *MapHeap[K]) AddItem(key K, priority int64) {
	// Check if item already exists
	if it, exists := mh.itemsMap[key]; exists {
		// Update priority and fix heap
		it.priority = priority
		heap.Fix(mh, it.index)
		return
	}

	// Create and add new item
	heap.Push(mh, &item[K]{
		key:      key,
		priority: priority,
	})
}

// RemoveByKey removes an item by its key and returns its priority
func (mh *MapHeap[K]) RemoveByKey(key K) (int64, bool) {
	it, exists := mh.itemsMap[key]
	if !exists {
		return 0, false
	}

	// Remove from heap
	heap.Remove(mh, it.index)
	return it.priority, true
}

// PopMin removes and returns the key with the lowest priority
func (mh *MapHeap[K]) PopMin() (key K, priority int64, ok bool) {
	if len(mh.items) == 0 {
		return key, 0, false
	}
	it := heap.Pop(mh).(*item[K])
	return it.key, it.priority, true
}

// Peek returns the key and priority of the minimum item without removing it
func (mh *MapHeap[K]) Peek() (key K, priority int64, ok bool) {
	if len(mh.items) == 0 {
		return key, 0, false
	}
	return mh.items[0].key, mh.items[0].priority, true
}

// Contains checks if a key exists in the queue
func (mh *MapHeap[K]) Contains(key K) bool {
	_, exists := mh.itemsMap[key]
	return exists
}

// GetPriority retrieves the priority for a key without removing the item
func (mh *MapHeap[K]) GetPriority(key K) (int64, bool) {
	it, exists := mh.itemsMap[key]
	if !exists {
		return 0, false
	}
	return it.priority, true
}
