package cache

import (
	"time"

	"github.com/c-colloid/previewcache/lib/durable"
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures the cache behavior during initialization
type Options struct {
	// Directory is where the default file backend stores artifacts and the
	// index. Ignored when Backend is set.
	Directory string

	// Backend overrides the durable tier (nil = file backend in Directory)
	Backend durable.BackendFactory

	MaxMemoryEntries int   // Capacity of the in-memory metadata tier
	MaxArtifactSize  int64 // Per-artifact payload limit in bytes
	MaxTotalSize     int64 // Durable-tier size cap enforced by maintenance

	MaxConcurrentOps int64         // Concurrency slots for durable-tier operations
	AcquireTimeout   time.Duration // Bounded wait for a slot
	MaxRetryAttempts uint          // Attempts per durable operation (first try included)
	RetryDelay       time.Duration // Base retry delay, attempt n waits n*RetryDelay

	MaintenanceInterval time.Duration // Minimum time between maintenance sweeps
	ExpiryAge           time.Duration // Entries unused for longer than this are removed
}

// DefaultOptions returns the default cache options
func DefaultOptions() *Options {
	return &Options{
		MaxMemoryEntries:    50,
		MaxArtifactSize:     10 << 20,  // 10 MiB per artifact
		MaxTotalSize:        100 << 20, // 100 MiB on disk
		MaxConcurrentOps:    4,
		AcquireTimeout:      5 * time.Second,
		MaxRetryAttempts:    3,
		RetryDelay:          100 * time.Millisecond,
		MaintenanceInterval: 24 * time.Hour,
		ExpiryAge:           7 * 24 * time.Hour,
	}
}

// withDefaults fills zero values with their defaults so partially populated
// options behave predictably.
func (o *Options) withDefaults() *Options {
	def := DefaultOptions()
	if o == nil {
		return def
	}

	out := *o
	if out.MaxMemoryEntries <= 0 {
		out.MaxMemoryEntries = def.MaxMemoryEntries
	}
	if out.MaxArtifactSize <= 0 {
		out.MaxArtifactSize = def.MaxArtifactSize
	}
	if out.MaxTotalSize <= 0 {
		out.MaxTotalSize = def.MaxTotalSize
	}
	if out.MaxConcurrentOps <= 0 {
		out.MaxConcurrentOps = def.MaxConcurrentOps
	}
	if out.AcquireTimeout <= 0 {
		out.AcquireTimeout = def.AcquireTimeout
	}
	if out.MaxRetryAttempts == 0 {
		out.MaxRetryAttempts = def.MaxRetryAttempts
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = def.RetryDelay
	}
	if out.MaintenanceInterval <= 0 {
		out.MaintenanceInterval = def.MaintenanceInterval
	}
	if out.ExpiryAge <= 0 {
		out.ExpiryAge = def.ExpiryAge
	}
	return &out
}
