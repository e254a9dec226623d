package cache

import (
	"context"
	"fmt"
	"io"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ICache is the public interface of the two-tier artifact cache.
//
// The interface deliberately surfaces no errors: a failed operation is
// reported as false (or a miss) and the cause is logged. Callers treat the
// cache as best-effort - a miss and a failure both mean "render the preview
// again", so distinguishing them at the call site buys nothing.
type ICache interface {
	// Save stores an artifact under key, replacing any previous artifact
	// atomically. Returns false if the artifact was rejected (empty key or
	// payload, size limit) or the durable write failed after retries.
	Save(ctx context.Context, key string, artifact Artifact) (ok bool)

	// Load retrieves the artifact for key. A missing, expired, or corrupt
	// artifact is a miss; corrupt artifacts are purged as a side effect.
	Load(ctx context.Context, key string) (artifact Artifact, ok bool)

	// HasEntry reports whether a usable artifact is stored for key without
	// reading its payload. An entry whose artifact has vanished from the
	// durable tier is dropped and reported as absent.
	HasEntry(key string) (ok bool)

	// Clear removes the artifact for key. Clearing an absent key is not a
	// failure; Clear only returns false if the durable removal failed.
	Clear(key string) (ok bool)

	// ClearAll removes every artifact and resets the index.
	ClearAll() (ok bool)

	// GetStatistics returns a snapshot of cache contents and lookup
	// performance since the cache was opened.
	GetStatistics() (stats Statistics)

	// RunMaintenanceIfDue runs the maintenance sweep (expiry and size cap)
	// if the configured interval has elapsed since the last sweep. Returns
	// whether a sweep actually ran.
	RunMaintenanceIfDue() (ran bool)

	// WriteMetrics writes all cache metrics to w in Prometheus text format.
	WriteMetrics(w io.Writer)

	// Close stops background maintenance and releases the durable tier.
	Close() (err error)
}

// Statistics is a point-in-time snapshot of the cache state.
type Statistics struct {
	EntryCount     int           `json:"entry_count"`      // Number of indexed artifacts
	TotalSizeBytes int64         `json:"total_size_bytes"` // Sum of artifact payload sizes
	Lookups        int64         `json:"lookups"`          // Load calls since open
	Hits           int64         `json:"hits"`             // Successful Load calls since open
	HitRate        float64       `json:"hit_rate"`         // Hits / Lookups (0 if no lookups)
	AvgAccessTime  time.Duration `json:"avg_access_time"`  // Mean Load duration
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the internal error type of the cache. It wraps a return code (of
// type RetCode) and a message. It never crosses the public API - the service
// layer converts it to a bool and logs it - but internal layers use the code
// to decide whether an operation is worth retrying.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("CacheError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Operation executed successfully.
	RetCTransientIO                     // 1: I/O failure that may succeed on retry.
	RetCCorruption                      // 2: Stored data failed integrity verification.
	RetCCapacity                        // 3: Artifact exceeds a configured size limit.
	RetCGateTimeout                     // 4: No concurrency slot became available in time.
	RetCInvalidOperation                // 5: Invalid operation (empty key, empty payload).
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCTransientIO:
		return "TransientIO"
	case RetCCorruption:
		return "Corruption"
	case RetCCapacity:
		return "Capacity"
	case RetCGateTimeout:
		return "GateTimeout"
	case RetCInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unknown"
	}
}
