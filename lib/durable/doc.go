// Package durable defines the interface for the cache's durable artifact
// tier and the integrity checksum shared by all implementations.
//
// The package follows a strategy pattern: the cache only ever talks to the
// IBackend interface, and concrete backends live in subpackages. The
// file-based backend (fstore) is the default and only production backend -
// it has no size limits beyond the configured per-artifact cap and survives
// process restarts. The in-memory backend (memstore) implements the same
// contract without touching the filesystem and exists for tests and
// comparison runs.
//
// All backends are validated against the same conformance suite in the
// testing subpackage, driven by a BackendFactory in the same way the
// database engines of a key-value store are tested against one shared suite.
//
// Semantics every backend must provide:
//
//   - Atomic replace: a reader never observes a partially written artifact.
//     At any instant a location is either absent, wholly the previous
//     version, or wholly the new version.
//   - Capacity rejection: artifacts above the configured maximum size are
//     rejected before any write happens (ErrTooLarge).
//   - Best-effort remove: deleting an absent location is a no-op, not an
//     error.
//   - Flat namespace: locations are opaque flat identifiers; anything
//     containing a path separator is rejected (ErrBadLocation).
//
// Checksums are computed by the caller on write and verified by the caller
// on read; backends store and return raw bytes and never inspect artifact
// contents.
package durable
