package util

import (
	"sort"
	"testing"
)

// TestNewMapHeap tests the creation of a new MapHeap
func TestNewMapHeap(t *testing.T) {
	mh := NewMapHeap[string]()

	if mh == nil {
		t.Fatal("NewMapHeap() returned nil")
	}

	if mh.Len() != 0 {
		t.Errorf("New heap should be empty, but has length %d", mh.Len())
	}
}

// TestAddItem tests adding items to the heap
func TestAddItem(t *testing.T) {
	mh := NewMapHeap[string]()

	// Add a few items
	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("c", 50)

	if mh.Len() != 3 {
		t.Errorf("Heap should have 3 items, but has %d", mh.Len())
	}

	for _, key := range []string{"a", "b", "c"} {
		if !mh.Contains(key) {
			t.Errorf("Heap should contain key %q", key)
		}
	}

	// Check the order (min heap, so the lowest value should be first)
	key, priority, ok := mh.Peek()
	if !ok {
		t.Fatal("Peek() should return an item")
	}

	if key != "c" || priority != 50 {
		t.Errorf("Expected min item to be (c,50), got (%s,%d)", key, priority)
	}
}

// TestUpdateItem tests updating existing items
func TestUpdateItem(t *testing.T) {
	mh := NewMapHeap[string]()

	// Add items
	mh.AddItem("a", 100)
	mh.AddItem("b", 200)

	// Update an item
	mh.AddItem("a", 300) // Increase priority of item a

	// Check if update worked
	priority, ok := mh.GetPriority("a")
	if !ok {
		t.Fatal("Item with key a should exist")
	}

	if priority != 300 {
		t.Errorf("Item with key a should have priority 300, got %d", priority)
	}

	// Check if heap property is maintained
	key, _, _ := mh.Peek()
	if key != "b" {
		t.Errorf("Min item should now be key b, got %s", key)
	}

	// Update to lower value
	mh.AddItem("b", 50)

	key, priority, _ = mh.Peek()
	if key != "b" || priority != 50 {
		t.Errorf("Min item should now be (b,50), got (%s,%d)", key, priority)
	}
}

// TestRemoveByKey tests removing items by key
func TestRemoveByKey(t *testing.T) {
	mh := NewMapHeap[string]()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("c", 300)

	// Remove item with key b
	priority, ok := mh.RemoveByKey("b")

	if !ok {
		t.Fatal("RemoveByKey should return true for existing key")
	}

	if priority != 200 {
		t.Errorf("RemoveByKey should return priority 200, got %d", priority)
	}

	if mh.Len() != 2 {
		t.Errorf("Heap should have 2 items after removal, has %d", mh.Len())
	}

	if mh.Contains("b") {
		t.Error("Heap should not contain key b after removal")
	}

	// Try to remove non-existent key
	_, ok = mh.RemoveByKey("zz")
	if ok {
		t.Error("RemoveByKey should return false for non-existent key")
	}
}

// TestPopOrder tests if items are popped in correct order
func TestPopOrder(t *testing.T) {
	mh := NewMapHeap[string]()

	// Add items in random order
	items := []struct {
		key      string
		priority int64
	}{
		{"e", 50},
		{"c", 30},
		{"a", 10},
		{"d", 40},
		{"b", 20},
	}

	for _, it := range items {
		mh.AddItem(it.key, it.priority)
	}

	// Sort the items for comparison
	sort.Slice(items, func(i, j int) bool {
		return items[i].priority < items[j].priority
	})

	// Pop all items and verify order
	for i, expected := range items {
		key, priority, ok := mh.PopMin()
		if !ok {
			t.Fatalf("Heap empty after %d items, expected %d items", i, len(items))
		}

		if key != expected.key || priority != expected.priority {
			t.Errorf("Pop %d: expected (%s,%d), got (%s,%d)",
				i, expected.key, expected.priority, key, priority)
		}
	}

	if mh.Len() != 0 {
		t.Errorf("Heap should be empty after popping all items, has %d items", mh.Len())
	}
}

// TestPeekEmptyHeap tests behavior when peeking an empty heap
func TestPeekEmptyHeap(t *testing.T) {
	mh := NewMapHeap[string]()

	if _, _, ok := mh.Peek(); ok {
		t.Error("Peek on empty heap should return ok=false")
	}

	if _, _, ok := mh.PopMin(); ok {
		t.Error("PopMin on empty heap should return ok=false")
	}
}

// TestGetPriority tests retrieving priorities by key
func TestGetPriority(t *testing.T) {
	mh := NewMapHeap[string]()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)

	// Get existing item
	priority, ok := mh.GetPriority("a")
	if !ok {
		t.Fatal("GetPriority should find existing key")
	}

	if priority != 100 {
		t.Errorf("GetPriority returned incorrect priority: expected 100, got %d", priority)
	}

	// Get non-existent item
	if _, ok = mh.GetPriority("zz"); ok {
		t.Error("GetPriority should return ok=false for non-existent key")
	}
}
