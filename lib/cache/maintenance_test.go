package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

// forceDue resets the last-cleanup timestamp so the next RunMaintenanceIfDue
// actually sweeps.
func forceDue(c ICache) {
	impl := c.(*cacheImpl)
	impl.mu.Lock()
	impl.lastCleanup = time.Time{}
	impl.mu.Unlock()
}

// backdate rewrites the last-access time of an entry, simulating an entry
// that has not been touched for a while.
func backdate(c ICache, key string, age time.Duration) {
	impl := c.(*cacheImpl)
	impl.mu.Lock()
	defer impl.mu.Unlock()

	entry := impl.catalog[key]
	entry.LastAccess = time.Now().Add(-age).UnixNano()
	impl.catalog[key] = entry
	impl.tier.Remove(key) // drop the cached copy of the old timestamp
}

// TestMaintenanceNotDue tests that the sweep is skipped inside the interval
func TestMaintenanceNotDue(t *testing.T) {
	c, _ := newTestCache(t, nil)

	// New runs an initial sweep, so the next one is not due for 24h
	if c.RunMaintenanceIfDue() {
		t.Error("sweep should not run again inside the interval")
	}
}

// TestMaintenanceExpiry tests that entries unused for longer than the expiry
// age are removed, artifacts included.
func TestMaintenanceExpiry(t *testing.T) {
	c, dir := newTestCache(t, nil)
	ctx := context.Background()

	c.Save(ctx, "stale", Artifact{Data: []byte("old"), Width: 1, Height: 1})
	c.Save(ctx, "fresh", Artifact{Data: []byte("new"), Width: 1, Height: 1})

	backdate(c, "stale", 8*24*time.Hour) // expiry age is 7 days
	forceDue(c)

	if !c.RunMaintenanceIfDue() {
		t.Fatal("sweep should have run")
	}

	if c.HasEntry("stale") {
		t.Error("expired entry should be removed")
	}
	if !c.HasEntry("fresh") {
		t.Error("fresh entry should survive")
	}
	if _, err := os.Stat(artifactPath(dir, "stale")); !os.IsNotExist(err) {
		t.Error("expired artifact file should be removed")
	}
}

// TestMaintenanceSizeCap tests that the oldest-accessed entries are evicted
// first until the durable tier fits its cap.
func TestMaintenanceSizeCap(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxTotalSize = 3 * 1024 // fits three of the four artifacts

	c, _ := newTestCache(t, opts)
	ctx := context.Background()

	payload := make([]byte, 1024)
	for i := 0; i < 4; i++ {
		key := fmt.Sprintf("doc-%d", i)
		if !c.Save(ctx, key, Artifact{Data: payload, Width: 1, Height: 1}) {
			t.Fatalf("Save %s failed", key)
		}
		// Distinct, increasing ages: doc-0 is the oldest
		backdate(c, key, time.Duration(10-i)*time.Minute)
	}

	forceDue(c)
	if !c.RunMaintenanceIfDue() {
		t.Fatal("sweep should have run")
	}

	if c.HasEntry("doc-0") {
		t.Error("oldest entry should be evicted first")
	}
	for i := 1; i < 4; i++ {
		if !c.HasEntry(fmt.Sprintf("doc-%d", i)) {
			t.Errorf("doc-%d should survive the size cap sweep", i)
		}
	}

	stats := c.GetStatistics()
	if stats.TotalSizeBytes > opts.MaxTotalSize {
		t.Errorf("total size %d still exceeds cap %d", stats.TotalSizeBytes, opts.MaxTotalSize)
	}
}

// TestMaintenanceSchedulePersists tests that the last-sweep timestamp
// survives a reopen, so a restart does not trigger a premature sweep.
func TestMaintenanceSchedulePersists(t *testing.T) {
	dir := t.TempDir()

	opts := DefaultOptions()
	opts.Directory = dir

	c, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := New(opts)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	// The first open swept; the reopen must have picked up that timestamp
	if reopened.RunMaintenanceIfDue() {
		t.Error("sweep should not be due right after a reopen")
	}
}

// TestSchedulerStartStop tests the scheduler lifecycle guards
func TestSchedulerStartStop(t *testing.T) {
	c, _ := newTestCache(t, nil)
	impl := c.(*cacheImpl)

	// Double start and double stop must be harmless
	impl.sched.start()
	impl.sched.stop()
	impl.sched.stop()
}
