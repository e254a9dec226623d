// Package cache implements a two-tier cache for rendered preview bitmaps. It
// combines a bounded in-memory metadata tier with a durable artifact tier and
// exposes a deliberately forgiving public API: operations report success as a
// bool and misses as an absent value, never an error, because every caller
// reacts to both the same way - by re-rendering the preview.
//
// The package focuses on:
//   - Crash-safe durable storage through atomic write-then-rename artifacts
//     and a write-artifact-before-index ordering
//   - Integrity verification of every payload read, with automatic purging of
//     corrupt or vanished artifacts
//   - Bounded resource usage on all axes: memory entries, per-artifact size,
//     total durable size, and concurrent I/O
//   - Self-healing persistence that degrades to an empty cache instead of
//     failing to open
//
// Key Components:
//
//   - cacheImpl: The central service implementing ICache. It owns the
//     catalog (the authoritative in-memory map of all indexed entries), the
//     running size total, and the maintenance schedule, and coordinates the
//     tiers on every operation.
//
//   - Entry: The metadata for one cached artifact - original key, hashed
//     durable location, bitmap dimensions, payload size, integrity checksum,
//     and creation/access timestamps. Entries travel between the catalog,
//     the memory tier, and the persisted index; artifact bytes never do.
//
//   - memtier.Tier: A bounded LRU tier holding the metadata of recently used
//     entries. Eviction from this tier is invisible to callers: the entry is
//     reconstructed from the catalog on the next lookup.
//
//   - durable.IBackend: The artifact tier. The default file backend writes
//     each artifact to a temporary file, fsyncs it, and renames it into
//     place, so readers never observe partial artifacts and a crash leaves
//     at most a temp file that is swept on the next open.
//
//   - gate.Gate: A counting semaphore with a bounded acquisition wait and a
//     linear-backoff retry loop. Durable-tier mutations pass through both,
//     which bounds concurrent write I/O and absorbs transient failures;
//     reads use only the retry loop and run fully in parallel.
//
//   - collector: Sharded hit/miss counters plus latency tracking, exported
//     both through the Statistics snapshot and in Prometheus text format.
//
// Internal Mechanisms:
//
//   - Location Derivation: Cache keys are arbitrary strings; durable
//     locations are derived from them with a 32-bit FNV-1a hash formatted as
//     fixed-width hex. The cache stores one artifact per hash slot. A
//     collision overwrites the slot, and the loser's next lookup fails its
//     checksum and purges cleanly - rare, detected, and self-correcting.
//
//   - Write Ordering: Save writes the artifact first and the index second. A
//     crash between the two leaves an orphaned artifact (swept at the next
//     open), never an index entry pointing at missing or stale data.
//
//   - Verification: Every payload read is checked against the xxhash64
//     digest recorded at write time, covering the full payload. A mismatch
//     purges the entry and reports a miss, so corruption costs exactly one
//     failed lookup. A mismatch caused by an overwrite that completed
//     mid-read is recognized (the payload verifies against the newer entry)
//     and served as a hit instead of purged.
//
//   - Index Persistence: The catalog is persisted as a single JSON file,
//     written atomically on every mutation (save, clear, purge, sweep).
//     Reads refresh access times in memory only; they piggyback on the next
//     mutating write instead of rewriting the index per lookup.
//
//   - Maintenance: A sweep removes entries unused for longer than the expiry
//     age, then evicts oldest-first until the durable tier fits its size
//     cap. The sweep runs when due - checked after every save and
//     periodically by a background scheduler - and the last-sweep timestamp
//     is persisted so the schedule survives restarts.
//
// The package is designed for applications that render expensive previews of
// local documents and want them back instantly across sessions: a desktop
// application's thumbnail pane, an editor's asset browser, or a CLI that
// batches conversions.
package cache
