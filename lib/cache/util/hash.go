package util

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// KeyHash derives a stable, filesystem-safe location identifier from an
// arbitrary cache key.
//
// This function uses the 32-bit FNV-1a hash algorithm, which is fast, has
// good distribution and - unlike the runtime map hash - is deterministic
// across process restarts. The result is formatted as fixed-width lowercase
// hex, so it only ever contains characters that are safe in file names.
//
// The hash is deliberately not collision-free: the cache stores one artifact
// per hashed slot, and the full key is kept in the entry metadata so a
// collision surfaces as a checksum mismatch (and therefore a miss) rather
// than as wrong bytes. With a bounded namespace of at most a few hundred
// entries this is an acceptable, rare overwrite risk.
func KeyHash(key string) string {
	return fmt.Sprintf("%08x", KeyHash32(key))
}

// KeyHash32 computes the raw 32-bit FNV-1a hash over the UTF-8 bytes of key
func KeyHash32(key string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)

	hash := uint32(offset32)
	for i := 0; i < len(key); i++ {
		hash ^= uint32(key[i])
		hash *= prime32
	}

	return hash
}
