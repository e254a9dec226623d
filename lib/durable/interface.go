package durable

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ArtifactExt is the file extension used for artifact locations. Backends
// that enumerate their contents only report locations with this extension,
// which keeps the index file and temporary files out of List results.
const ArtifactExt = ".bin"

// BackendFactory is a function type that creates a new backend used by the
// cache. This is used to abstract the creation of the backend from the cache
// implementation (e.g. for running the same test suite against multiple
// backends).
type BackendFactory func() (IBackend, error)

// IBackend is the generic interface for the durable artifact tier.
//
// A location is an opaque flat identifier chosen by the caller (typically a
// hashed key plus ArtifactExt). Implementations must reject locations that
// contain path separators.
//
// Write must be atomic: a concurrent Read for the same location observes
// either the complete previous artifact, the complete new artifact, or
// ErrNotFound - never a partial write.
type IBackend interface {
	// Write stores the artifact bytes at the given location, replacing any
	// previous artifact atomically. Artifacts larger than the backend's
	// configured size limit are rejected with ErrTooLarge before any write.
	Write(location string, data []byte) (err error)
	// Read returns the full artifact bytes for a location.
	// A missing artifact is reported as ErrNotFound.
	Read(location string) (data []byte, err error)
	// Exists reports whether an artifact is present at the location.
	Exists(location string) (ok bool)
	// Remove deletes the artifact at the location. Removing an absent
	// location is not an error.
	Remove(location string) (err error)
	// List returns all artifact locations currently present.
	List() (locations []string, err error)
	// Close releases backend resources.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrNotFound is returned by Read when no artifact exists at the location
	ErrNotFound = errors.New("durable: artifact not found")
	// ErrTooLarge is returned by Write when the artifact exceeds the
	// backend's size limit. This error is permanent and must not be retried.
	ErrTooLarge = errors.New("durable: artifact exceeds size limit")
	// ErrBadLocation is returned for locations that are empty or contain
	// path separators. This error is permanent and must not be retried.
	ErrBadLocation = errors.New("durable: invalid location")
)

// --------------------------------------------------------------------------
// Checksums
// --------------------------------------------------------------------------

// Checksum computes the integrity digest for an artifact payload, formatted
// as fixed-width hex.
//
// The digest is xxhash64 over the whole payload. This is a fast
// non-cryptographic check against truncation and corruption, not a security
// control - it is cheap enough that covering the full payload costs less
// than a syscall, and full coverage means a single flipped byte anywhere in
// the stored file is detected on read.
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// VerifyChecksum recomputes the digest for data and compares it to expected.
// An empty expected digest is treated as "no checksum recorded" and passes.
func VerifyChecksum(data []byte, expected string) bool {
	if expected == "" {
		return true
	}
	return Checksum(data) == expected
}
