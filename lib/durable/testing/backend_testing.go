// Package testing provides a reusable conformance test suite for
// durable.IBackend implementations. Every backend (file-based or in-memory)
// is expected to pass the full suite; backend packages run it from their own
// tests via a factory function.
package testing

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/c-colloid/previewcache/lib/durable"
)

// RunBackendTests runs the conformance test suite for an IBackend
// implementation. The factory is called once per subtest so every subtest
// starts from an empty backend.
func RunBackendTests(t *testing.T, name string, factory durable.BackendFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("WriteRead", func(t *testing.T) {
			testWriteRead(t, mustCreate(t, factory))
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, mustCreate(t, factory))
		})

		t.Run("ReadMissing", func(t *testing.T) {
			testReadMissing(t, mustCreate(t, factory))
		})

		t.Run("Exists", func(t *testing.T) {
			testExists(t, mustCreate(t, factory))
		})

		t.Run("RemoveIdempotent", func(t *testing.T) {
			testRemoveIdempotent(t, mustCreate(t, factory))
		})

		t.Run("List", func(t *testing.T) {
			testList(t, mustCreate(t, factory))
		})

		t.Run("TooLarge", func(t *testing.T) {
			testTooLarge(t, mustCreate(t, factory))
		})

		t.Run("BadLocation", func(t *testing.T) {
			testBadLocation(t, mustCreate(t, factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func mustCreate(t *testing.T, factory durable.BackendFactory) durable.IBackend {
	t.Helper()
	backend, err := factory()
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func loc(name string) string {
	return name + durable.ArtifactExt
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testWriteRead(t *testing.T, backend durable.IBackend) {
	payload := []byte("artifact-payload")

	if err := backend.Write(loc("a"), payload); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := backend.Read(loc("a"))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Read returned %q, want %q", got, payload)
	}

	// The returned slice must not alias backend-internal storage
	got[0] = 'X'
	again, err := backend.Read(loc("a"))
	if err != nil {
		t.Fatalf("second Read failed: %v", err)
	}
	if !bytes.Equal(again, payload) {
		t.Errorf("mutating a read result changed stored bytes: got %q", again)
	}
}

func testOverwrite(t *testing.T, backend durable.IBackend) {
	if err := backend.Write(loc("a"), []byte("old")); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}
	if err := backend.Write(loc("a"), []byte("new")); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	got, err := backend.Read(loc("a"))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("expected overwritten value, got %q", got)
	}
}

func testReadMissing(t *testing.T, backend durable.IBackend) {
	_, err := backend.Read(loc("missing"))
	if !errors.Is(err, durable.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testExists(t *testing.T, backend durable.IBackend) {
	if backend.Exists(loc("a")) {
		t.Error("Exists should be false before Write")
	}

	if err := backend.Write(loc("a"), []byte("x")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !backend.Exists(loc("a")) {
		t.Error("Exists should be true after Write")
	}

	if err := backend.Remove(loc("a")); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if backend.Exists(loc("a")) {
		t.Error("Exists should be false after Remove")
	}
}

func testRemoveIdempotent(t *testing.T, backend durable.IBackend) {
	// Removing an absent location is a no-op, not an error
	if err := backend.Remove(loc("never-written")); err != nil {
		t.Errorf("Remove of absent location should succeed, got %v", err)
	}

	if err := backend.Write(loc("a"), []byte("x")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := backend.Remove(loc("a")); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := backend.Remove(loc("a")); err != nil {
		t.Errorf("second Remove should succeed, got %v", err)
	}
}

func testList(t *testing.T, backend durable.IBackend) {
	want := []string{loc("a"), loc("b"), loc("c")}
	for i, l := range want {
		if err := backend.Write(l, []byte(fmt.Sprintf("payload-%d", i))); err != nil {
			t.Fatalf("Write %s failed: %v", l, err)
		}
	}

	locations, err := backend.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	sort.Strings(locations)
	if len(locations) != len(want) {
		t.Fatalf("List returned %d locations, want %d: %v", len(locations), len(want), locations)
	}
	for i := range want {
		if locations[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, locations[i], want[i])
		}
	}
}

func testTooLarge(t *testing.T, backend durable.IBackend) {
	// One byte over the default 10 MiB cap
	huge := make([]byte, 10<<20+1)

	err := backend.Write(loc("huge"), huge)
	if !errors.Is(err, durable.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	// The rejection must happen before any write
	if backend.Exists(loc("huge")) {
		t.Error("rejected artifact must not exist")
	}
}

func testBadLocation(t *testing.T, backend durable.IBackend) {
	for _, bad := range []string{"", "a/b" + durable.ArtifactExt, `a\b` + durable.ArtifactExt, "../escape" + durable.ArtifactExt} {
		if err := backend.Write(bad, []byte("x")); !errors.Is(err, durable.ErrBadLocation) {
			t.Errorf("Write(%q) should return ErrBadLocation, got %v", bad, err)
		}
		if _, err := backend.Read(bad); !errors.Is(err, durable.ErrBadLocation) {
			t.Errorf("Read(%q) should return ErrBadLocation, got %v", bad, err)
		}
		if backend.Exists(bad) {
			t.Errorf("Exists(%q) should be false", bad)
		}
	}
}
