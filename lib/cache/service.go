package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/c-colloid/previewcache/lib/cache/gate"
	"github.com/c-colloid/previewcache/lib/cache/memtier"
	"github.com/c-colloid/previewcache/lib/cache/util"
	"github.com/c-colloid/previewcache/lib/durable"
	"github.com/c-colloid/previewcache/lib/durable/fstore"
	"github.com/sirupsen/logrus"
)

// logger is the package logger. Level and formatting are controlled through
// the standard logrus configuration of the embedding application.
var logger = logrus.WithField("component", "previewcache")

// --------------------------------------------------------------------------
// Core Cache Service
// --------------------------------------------------------------------------

// cacheImpl implements ICache on top of a durable backend, the bounded
// memory tier, and the concurrency gate.
//
// Locking: mu protects the catalog, the running size total, and the
// last-cleanup timestamp. The memory tier and the statistics collector have
// their own synchronization. Durable-tier operations guarded by the gate are
// never issued while mu is held; only the (fast, local) index write is.
// Writers of one key slot (Save, Clear, purge) additionally hold the slot's
// stripe lock across the backend operation and the catalog commit, so two
// racing writers cannot commit in the opposite order of their artifact
// writes. Stripe locks are taken before mu, never the other way around.
type cacheImpl struct {
	opts    *Options
	backend durable.IBackend
	gate    *gate.Gate
	tier    *memtier.Tier[Entry]
	stats   *collector
	sched   *scheduler

	stripes [64]sync.Mutex // Per-key-slot write serialization

	mu          sync.Mutex
	catalog     map[string]Entry // All indexed entries, keyed by cache key
	totalSize   int64            // Sum of catalog entry sizes
	lastCleanup time.Time
	closed      bool
}

// keyLock returns the stripe lock serializing writers of key's slot
func (c *cacheImpl) keyLock(key string) *sync.Mutex {
	return &c.stripes[util.KeyHash32(key)%uint32(len(c.stripes))]
}

// New creates a cache from the given options (nil = defaults, but either
// Directory or Backend must be set). The index is loaded (self-healing),
// orphaned artifacts are swept, an overdue maintenance sweep runs, and the
// background scheduler is started.
//
// Thread-safety: This function is not thread-safe and should only be called
// once per cache directory; two cache instances sharing one directory are
// unsupported.
func New(opts *Options) (ICache, error) {
	opts = opts.withDefaults()

	var (
		backend durable.IBackend
		err     error
	)
	if opts.Backend != nil {
		backend, err = opts.Backend()
	} else {
		if opts.Directory == "" {
			return nil, NewError(RetCInvalidOperation, "either Directory or Backend must be set")
		}
		backend, err = fstore.New(opts.Directory, &fstore.Options{
			MaxArtifactSize: opts.MaxArtifactSize,
		})
	}
	if err != nil {
		return nil, err
	}

	catalog, lastCleanup := loadIndex(backend)
	var totalSize int64
	for _, e := range catalog {
		totalSize += e.SizeBytes
	}

	c := &cacheImpl{
		opts:    opts,
		backend: backend,
		gate: gate.New(&gate.Options{
			MaxConcurrentOps: opts.MaxConcurrentOps,
			AcquireTimeout:   opts.AcquireTimeout,
			MaxRetryAttempts: opts.MaxRetryAttempts,
			RetryDelay:       opts.RetryDelay,
			RetryIf:          isTransient,
		}),
		tier:        memtier.New[Entry](opts.MaxMemoryEntries),
		stats:       newCollector(),
		catalog:     catalog,
		totalSize:   totalSize,
		lastCleanup: lastCleanup,
	}

	c.sweepOrphans()
	c.RunMaintenanceIfDue()

	c.sched = newScheduler(c)
	c.sched.start()

	return c, nil
}

// sweepOrphans removes artifacts that no index entry references. Orphans
// appear when a crash hits between an artifact write and the index write.
// This only runs at construction, where no writes can be in flight.
func (c *cacheImpl) sweepOrphans() {
	locations, err := c.backend.List()
	if err != nil {
		logger.WithError(err).Warn("could not list artifacts for orphan sweep")
		return
	}

	referenced := make(map[string]struct{}, len(c.catalog))
	c.mu.Lock()
	for _, e := range c.catalog {
		referenced[e.Location] = struct{}{}
	}
	c.mu.Unlock()

	for _, loc := range locations {
		if _, ok := referenced[loc]; ok {
			continue
		}
		if err := c.backend.Remove(loc); err != nil {
			logger.WithError(err).WithField("location", loc).Warn("failed to remove orphaned artifact")
			continue
		}
		logger.WithField("location", loc).Info("removed orphaned artifact")
	}
}

// isTransient classifies durable-tier errors for the retry loop: a missing
// artifact, a size violation, or a bad location can never succeed on retry,
// everything else is assumed to be a transient I/O condition.
func isTransient(err error) bool {
	return !errors.Is(err, durable.ErrNotFound) &&
		!errors.Is(err, durable.ErrTooLarge) &&
		!errors.Is(err, durable.ErrBadLocation)
}

// classify maps an internal failure to the cache error taxonomy for logging
func classify(err error) *Error {
	switch {
	case errors.Is(err, gate.ErrAcquireTimeout):
		return NewError(RetCGateTimeout, err.Error())
	case errors.Is(err, durable.ErrTooLarge):
		return NewError(RetCCapacity, err.Error())
	case errors.Is(err, durable.ErrBadLocation):
		return NewError(RetCInvalidOperation, err.Error())
	default:
		return NewError(RetCTransientIO, err.Error())
	}
}

// --------------------------------------------------------------------------
// Interface Methods - Write Path
// --------------------------------------------------------------------------

// Save stores an artifact under key (docu see interface.go).
//
// The artifact is written to the durable tier first (atomically, through the
// gate) and only then indexed: a crash between the two leaves an orphaned
// artifact that the next open sweeps, never an index entry without data.
// Saves of one key are serialized on its stripe lock, so racing overwrites
// commit in artifact-write order and the last writer wins cleanly.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cacheImpl) Save(ctx context.Context, key string, artifact Artifact) bool {
	start := time.Now()

	if key == "" || len(artifact.Data) == 0 || artifact.Width <= 0 || artifact.Height <= 0 {
		logger.Warn(NewError(RetCInvalidOperation, "save requires a key, a non-empty payload and positive dimensions"))
		return false
	}
	if int64(len(artifact.Data)) > c.opts.MaxArtifactSize {
		logger.WithField("key", key).Warn(NewError(RetCCapacity,
			fmt.Sprintf("artifact size %d exceeds limit %d", len(artifact.Data), c.opts.MaxArtifactSize)))
		return false
	}

	location := util.KeyHash(key) + durable.ArtifactExt
	sum := durable.Checksum(artifact.Data)

	lock := c.keyLock(key)
	lock.Lock()

	err := c.gate.Do(ctx, func() error {
		return c.backend.Write(location, artifact.Data)
	})
	if err != nil {
		lock.Unlock()
		logger.WithField("key", key).Warn(classify(err))
		return false
	}

	now := time.Now().UnixNano()
	entry := Entry{
		Key:           key,
		Location:      location,
		Width:         artifact.Width,
		Height:        artifact.Height,
		SizeBytes:     int64(len(artifact.Data)),
		Checksum:      sum,
		FormatVersion: formatVersion,
		CreatedAt:     now,
		LastAccess:    now,
	}

	c.mu.Lock()
	if old, ok := c.catalog[key]; ok {
		c.totalSize -= old.SizeBytes
		entry.CreatedAt = old.CreatedAt
	}
	c.catalog[key] = entry
	c.totalSize += entry.SizeBytes
	c.tier.Put(key, entry)
	if err := c.saveIndexLocked(); err != nil {
		// The artifact is stored and indexed in memory; the entry reaches
		// disk with the next successful index write
		logger.WithError(err).WithField("key", key).Error("failed to persist index after save")
	}
	c.mu.Unlock()
	lock.Unlock()

	c.stats.recordSave(start)
	c.RunMaintenanceIfDue()

	return true
}

// Clear removes the artifact for key (docu see interface.go).
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cacheImpl) Clear(key string) bool {
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	c.mu.Lock()
	entry, ok := c.catalog[key]
	if ok {
		delete(c.catalog, key)
		c.totalSize -= entry.SizeBytes
		if err := c.saveIndexLocked(); err != nil {
			logger.WithError(err).WithField("key", key).Error("failed to persist index after clear")
		}
	}
	c.mu.Unlock()
	c.tier.Remove(key)

	if !ok {
		// Nothing stored for this key - clearing is idempotent
		return true
	}

	if err := c.backend.Remove(entry.Location); err != nil {
		logger.WithField("key", key).Warn(classify(err))
		return false
	}
	return true
}

// ClearAll removes every artifact and resets the index (docu see
// interface.go). Unreferenced artifacts in the durable tier are removed too.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cacheImpl) ClearAll() bool {
	c.mu.Lock()
	locations := make([]string, 0, len(c.catalog))
	for _, e := range c.catalog {
		locations = append(locations, e.Location)
	}
	c.catalog = make(map[string]Entry)
	c.totalSize = 0
	if err := c.saveIndexLocked(); err != nil {
		logger.WithError(err).Error("failed to persist index after clear-all")
	}
	c.mu.Unlock()
	c.tier.Purge()

	ok := true
	remove := func(loc string) {
		if err := c.backend.Remove(loc); err != nil {
			logger.WithField("location", loc).Warn(classify(err))
			ok = false
		}
	}
	for _, loc := range locations {
		remove(loc)
	}

	// Also drop artifacts the catalog never knew about
	if all, err := c.backend.List(); err == nil {
		for _, loc := range all {
			remove(loc)
		}
	}

	return ok
}

// --------------------------------------------------------------------------
// Interface Methods - Read Path
// --------------------------------------------------------------------------

// Load retrieves the artifact for key (docu see interface.go).
//
// The entry metadata comes from the memory tier when possible and from the
// catalog otherwise; the payload always comes from the durable tier and is
// verified against the stored checksum before it is returned. A verification
// failure purges the entry, so corruption is paid for exactly once - unless
// the entry was overwritten while the read was in flight, in which case the
// payload is re-verified against the newer entry and returned as a hit.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cacheImpl) Load(ctx context.Context, key string) (Artifact, bool) {
	start := time.Now()

	entry, ok := c.tier.Get(key)
	if !ok {
		c.mu.Lock()
		entry, ok = c.catalog[key]
		c.mu.Unlock()
		if !ok {
			c.stats.recordMiss(start)
			c.advise()
			return Artifact{}, false
		}
	}

	// Reads never consume a gate slot; only the retry policy applies
	var data []byte
	err := c.gate.Retry(ctx, func() error {
		var rerr error
		data, rerr = c.backend.Read(entry.Location)
		return rerr
	})
	if err != nil {
		if errors.Is(err, durable.ErrNotFound) {
			c.purge(key, entry, "artifact missing from durable tier")
		} else {
			logger.WithField("key", key).Warn(classify(err))
		}
		c.stats.recordMiss(start)
		c.advise()
		return Artifact{}, false
	}

	if !durable.VerifyChecksum(data, entry.Checksum) {
		// A save that completed while the read was in flight replaces the
		// artifact in place; the payload then belongs to the newer entry and
		// must not be mistaken for corruption.
		c.mu.Lock()
		cur, exists := c.catalog[key]
		c.mu.Unlock()
		if exists && cur.Checksum != entry.Checksum && durable.VerifyChecksum(data, cur.Checksum) {
			entry = cur
		} else {
			c.purge(key, entry, "checksum mismatch")
			c.stats.recordMiss(start)
			c.advise()
			return Artifact{}, false
		}
	}

	// Refresh the access time in memory; it reaches the index with the next
	// mutating save so plain reads don't rewrite the index file
	now := time.Now().UnixNano()
	entry.LastAccess = now
	c.tier.Put(key, entry)
	c.mu.Lock()
	if cur, ok := c.catalog[key]; ok {
		cur.LastAccess = now
		c.catalog[key] = cur
	}
	c.mu.Unlock()

	c.stats.recordHit(start)
	c.advise()

	return Artifact{Data: data, Width: entry.Width, Height: entry.Height}, true
}

// HasEntry reports whether a usable artifact exists for key (docu see
// interface.go).
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cacheImpl) HasEntry(key string) bool {
	c.mu.Lock()
	entry, ok := c.catalog[key]
	c.mu.Unlock()
	if !ok {
		return false
	}

	if !c.backend.Exists(entry.Location) {
		c.purge(key, entry, "artifact missing from durable tier")
		return false
	}
	return true
}

// purge drops an entry whose artifact is gone or failed verification, and
// removes the artifact itself so the slot is clean for the next save. stale
// is the entry the failing operation observed: when the catalog holds a
// different generation by now, a save completed in the meantime and the
// purge is skipped, so a racing lookup can never destroy a finished save.
func (c *cacheImpl) purge(key string, stale Entry, reason string) {
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	c.mu.Lock()
	entry, ok := c.catalog[key]
	if ok && entry.Checksum != stale.Checksum {
		c.mu.Unlock()
		return
	}
	if ok {
		delete(c.catalog, key)
		c.totalSize -= entry.SizeBytes
		if err := c.saveIndexLocked(); err != nil {
			logger.WithError(err).WithField("key", key).Error("failed to persist index after purge")
		}
	}
	c.mu.Unlock()
	c.tier.Remove(key)

	if ok {
		if err := c.backend.Remove(entry.Location); err != nil {
			logger.WithError(err).WithField("location", entry.Location).Warn("failed to remove purged artifact")
		}
		logger.WithFields(map[string]interface{}{
			"key":    key,
			"reason": reason,
		}).Warn("purged cache entry")
	}
}

// --------------------------------------------------------------------------
// Interface Methods - Statistics and Lifecycle
// --------------------------------------------------------------------------

// GetStatistics returns a snapshot of the cache state (docu see interface.go).
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *cacheImpl) GetStatistics() Statistics {
	c.mu.Lock()
	count := len(c.catalog)
	size := c.totalSize
	c.mu.Unlock()

	return Statistics{
		EntryCount:     count,
		TotalSizeBytes: size,
		Lookups:        c.stats.lookups(),
		Hits:           c.stats.hits.Value(),
		HitRate:        c.stats.hitRate(),
		AvgAccessTime:  c.stats.avgAccessTime(),
	}
}

// WriteMetrics writes all cache metrics in Prometheus text format
func (c *cacheImpl) WriteMetrics(w io.Writer) {
	c.stats.writePrometheus(w)
}

// advise logs a one-time warning when the hit rate stays low
func (c *cacheImpl) advise() {
	if c.stats.shouldAdvise() {
		logger.WithFields(map[string]interface{}{
			"hit_rate": c.stats.hitRate(),
			"lookups":  c.stats.lookups(),
		}).Warn("low hit rate, consider raising the memory tier capacity or the expiry age")
	}
}

// saveIndexLocked persists the catalog. Callers must hold mu.
func (c *cacheImpl) saveIndexLocked() error {
	return saveIndex(c.backend, c.catalog, c.lastCleanup)
}

// Close stops background maintenance, persists the access times accumulated
// since the last index write, and releases the backend.
//
// Thread-safety: This method is thread-safe; repeated calls are no-ops.
func (c *cacheImpl) Close() error {
	c.sched.stop()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	err := c.saveIndexLocked()
	c.mu.Unlock()

	if err != nil {
		logger.WithError(err).Error("failed to persist index on close")
	}
	return c.backend.Close()
}
