package cache

import (
	"sync/atomic"
	"time"

	"github.com/c-colloid/previewcache/lib/cache/util"
)

// --------------------------------------------------------------------------
// Maintenance Sweep
// --------------------------------------------------------------------------

// RunMaintenanceIfDue runs the maintenance sweep if the configured interval
// has elapsed since the last sweep (persisted in the index, so the schedule
// survives restarts). The sweep removes entries whose last access is older
// than the expiry age, then removes further entries oldest-first until the
// durable tier is back under its total size cap.
//
// Thread-safety: This method is thread-safe and can be called concurrently;
// the due-check and the sweep run under the catalog lock, so concurrent
// callers never sweep twice.
func (c *cacheImpl) RunMaintenanceIfDue() bool {
	c.mu.Lock()
	if time.Since(c.lastCleanup) < c.opts.MaintenanceInterval {
		c.mu.Unlock()
		return false
	}
	victims := c.sweepLocked()
	c.mu.Unlock()

	// Artifact removal happens outside the lock: the entries are already
	// gone from the catalog and the index, so a failed removal only leaves
	// an orphan file that the next open sweeps up.
	for _, e := range victims {
		c.tier.Remove(e.Key)
		if err := c.backend.Remove(e.Location); err != nil {
			logger.WithError(err).WithField("location", e.Location).
				Warn("failed to remove artifact during maintenance")
		}
	}
	c.stats.recordMaintenanceRemovals(len(victims))

	return true
}

// sweepLocked removes expired and over-cap entries from the catalog and
// persists the index. It returns the removed entries so the caller can drop
// their artifacts after releasing the lock.
func (c *cacheImpl) sweepLocked() []Entry {
	now := time.Now()
	cutoff := now.Add(-c.opts.ExpiryAge).UnixNano()

	var victims []Entry

	// Expiry: drop everything unused for longer than the expiry age
	for key, e := range c.catalog {
		if e.LastAccess < cutoff {
			victims = append(victims, e)
			c.totalSize -= e.SizeBytes
			delete(c.catalog, key)
		}
	}
	expired := len(victims)

	// Size cap: drop the oldest-accessed entries until we fit. The heap is
	// rebuilt from the catalog on each sweep; with at most a few hundred
	// entries this is cheaper than maintaining it on every lookup.
	if c.totalSize > c.opts.MaxTotalSize {
		ages := util.NewMapHeap[string]()
		for key, e := range c.catalog {
			ages.AddItem(key, e.LastAccess)
		}

		for c.totalSize > c.opts.MaxTotalSize {
			key, _, ok := ages.PopMin()
			if !ok {
				break
			}
			e := c.catalog[key]
			victims = append(victims, e)
			c.totalSize -= e.SizeBytes
			delete(c.catalog, key)
		}
	}

	c.lastCleanup = now
	if err := c.saveIndexLocked(); err != nil {
		logger.WithError(err).Error("failed to persist index after maintenance")
	}

	if len(victims) > 0 {
		logger.WithFields(map[string]interface{}{
			"expired":   expired,
			"evicted":   len(victims) - expired,
			"remaining": len(c.catalog),
		}).Info("maintenance sweep removed entries")
	}

	return victims
}

// --------------------------------------------------------------------------
// Background Scheduler
// --------------------------------------------------------------------------

// scheduler periodically triggers RunMaintenanceIfDue so long-running
// processes sweep without ever calling the cache. The check period is much
// shorter than the maintenance interval; the due-check itself decides
// whether anything happens.
type scheduler struct {
	cache   *cacheImpl
	period  time.Duration
	running atomic.Bool
	done    chan struct{}
}

// defaultCheckPeriod is how often the scheduler evaluates the due-check
const defaultCheckPeriod = time.Hour

func newScheduler(c *cacheImpl) *scheduler {
	period := defaultCheckPeriod
	if c.opts.MaintenanceInterval < period {
		period = c.opts.MaintenanceInterval
	}
	return &scheduler{
		cache:  c,
		period: period,
		done:   make(chan struct{}),
	}
}

// start launches the scheduler goroutine.
// If the scheduler is already running, this function does nothing.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *scheduler) start() {
	if s.running.CompareAndSwap(false, true) {
		go s.run()
	}
}

// stop terminates the scheduler goroutine.
// If the scheduler is not running, this function does nothing.
// The scheduler can't be started again after it has been stopped!
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *scheduler) stop() {
	if s.running.CompareAndSwap(true, false) {
		close(s.done)
	}
}

// run is the scheduler loop
// WARNING: this method should never be called directly, use start() and stop()
func (s *scheduler) run() {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cache.RunMaintenanceIfDue()
		case <-s.done:
			return
		}
	}
}
