package fstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c-colloid/previewcache/lib/durable"
	durabletesting "github.com/c-colloid/previewcache/lib/durable/testing"
)

func TestConformance(t *testing.T) {
	durabletesting.RunBackendTests(t, "FileBackend", func() (durable.IBackend, error) {
		return New(t.TempDir(), nil)
	})
}

// TestNoTempLeftovers verifies that successful and failed writes both leave
// no temporary files behind.
func TestNoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	backend, err := New(dir, &Options{MaxArtifactSize: 16})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer backend.Close()

	if err := backend.Write("a"+durable.ArtifactExt, []byte("ok")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Capacity rejection happens before any temp file is created
	if err := backend.Write("b"+durable.ArtifactExt, make([]byte, 64)); err == nil {
		t.Fatal("expected capacity failure")
	}

	assertNoTempFiles(t, dir)
}

// TestSweepTempOnOpen simulates a crash between temp-file write and rename:
// the leftover temp file must be removed on the next open and the final
// location must stay untouched.
func TestSweepTempOnOpen(t *testing.T) {
	dir := t.TempDir()

	// A leftover from a previous interrupted write
	leftover := filepath.Join(dir, ".artifact-12345.tmp")
	if err := os.WriteFile(leftover, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write leftover: %v", err)
	}

	backend, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer backend.Close()

	if _, err := os.Stat(leftover); !os.IsNotExist(err) {
		t.Error("leftover temp file should have been swept on open")
	}

	// The interrupted write never renamed, so the location is absent
	if backend.Exists("a" + durable.ArtifactExt) {
		t.Error("interrupted write must not be visible")
	}
	if _, err := backend.Read("a" + durable.ArtifactExt); err == nil {
		t.Error("interrupted write must read as not found")
	}
}

// TestListIgnoresForeignFiles verifies that the index file and temp files
// sharing the directory never show up as artifact locations.
func TestListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	backend, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer backend.Close()

	if err := backend.Write("a"+durable.ArtifactExt, []byte("x")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".artifact-999.tmp"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write tmp: %v", err)
	}

	locations, err := backend.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(locations) != 1 || locations[0] != "a"+durable.ArtifactExt {
		t.Errorf("List = %v, want only the artifact", locations)
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("unexpected temp file left behind: %s", e.Name())
		}
	}
}
