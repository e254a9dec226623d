package cache

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Statistics Collection
// --------------------------------------------------------------------------

// lowHitRateThreshold and lowHitRateMinLookups control the advisory: once
// more than lowHitRateMinLookups lookups were served and the hit rate is
// below the threshold, the cache logs a single warning suggesting that the
// memory tier or expiry settings may be mis-sized for the workload.
const (
	lowHitRateThreshold  = 0.5
	lowHitRateMinLookups = 10
)

// collector tracks lookup outcomes and latencies. Counters are sharded
// (xsync.Counter) because every Load touches them; the aggregate values are
// only read when statistics are requested.
//
// Thread-safety: all methods are safe for concurrent use.
type collector struct {
	hits    *xsync.Counter
	misses  *xsync.Counter
	totalNS atomic.Int64 // Summed Load durations

	advisoryFired atomic.Bool

	// Prometheus export
	set       *metrics.Set
	mHits     *metrics.Counter
	mMisses   *metrics.Counter
	mSaves    *metrics.Counter
	mEvicted  *metrics.Counter
	hLookup   *metrics.Histogram
	hSave     *metrics.Histogram
}

// newCollector creates a collector with its metric set
func newCollector() *collector {
	set := metrics.NewSet()
	return &collector{
		hits:     xsync.NewCounter(),
		misses:   xsync.NewCounter(),
		set:      set,
		mHits:    set.NewCounter(`previewcache_lookups_total{result="hit"}`),
		mMisses:  set.NewCounter(`previewcache_lookups_total{result="miss"}`),
		mSaves:   set.NewCounter(`previewcache_saves_total`),
		mEvicted: set.NewCounter(`previewcache_maintenance_removed_total`),
		hLookup:  set.NewHistogram(`previewcache_lookup_duration_seconds`),
		hSave:    set.NewHistogram(`previewcache_save_duration_seconds`),
	}
}

// recordHit records a successful lookup that started at start
func (c *collector) recordHit(start time.Time) {
	c.hits.Inc()
	c.totalNS.Add(time.Since(start).Nanoseconds())
	c.mHits.Inc()
	c.hLookup.UpdateDuration(start)
}

// recordMiss records a failed lookup that started at start
func (c *collector) recordMiss(start time.Time) {
	c.misses.Inc()
	c.totalNS.Add(time.Since(start).Nanoseconds())
	c.mMisses.Inc()
	c.hLookup.UpdateDuration(start)
}

// recordSave records a completed save that started at start
func (c *collector) recordSave(start time.Time) {
	c.mSaves.Inc()
	c.hSave.UpdateDuration(start)
}

// recordMaintenanceRemovals records n entries removed by a maintenance sweep
func (c *collector) recordMaintenanceRemovals(n int) {
	c.mEvicted.Add(n)
}

// lookups returns the total number of lookups so far
func (c *collector) lookups() int64 {
	return c.hits.Value() + c.misses.Value()
}

// hitRate returns the fraction of lookups that were hits (0 if none)
func (c *collector) hitRate() float64 {
	total := c.lookups()
	if total == 0 {
		return 0
	}
	return float64(c.hits.Value()) / float64(total)
}

// avgAccessTime returns the mean lookup duration (0 if no lookups)
func (c *collector) avgAccessTime() time.Duration {
	total := c.lookups()
	if total == 0 {
		return 0
	}
	return time.Duration(c.totalNS.Load() / total)
}

// shouldAdvise reports true exactly once, the first time the hit rate drops
// below the threshold after enough lookups to be meaningful.
func (c *collector) shouldAdvise() bool {
	if c.lookups() <= lowHitRateMinLookups || c.hitRate() >= lowHitRateThreshold {
		return false
	}
	return c.advisoryFired.CompareAndSwap(false, true)
}

// writePrometheus writes all collected metrics to w in Prometheus text format
func (c *collector) writePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}
