package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/c-colloid/previewcache/lib/durable"
)

// --------------------------------------------------------------------------
// Index Persistence
// --------------------------------------------------------------------------

// indexLocation is where the index file lives in the durable tier. The
// location has no artifact extension, so backends never report it in List.
const indexLocation = "index.json"

// indexFile is the on-disk representation of the catalog. JSON is a
// deliberate choice over a binary format: the index is small (a few hundred
// entries), written only on mutations, and being able to inspect or fix it
// with a text editor has saved more debugging time than a codec would save
// in CPU.
type indexFile struct {
	FormatVersion int              `json:"format_version"`
	LastCleanup   int64            `json:"last_cleanup"` // Unix nanos of the last maintenance sweep
	Entries       map[string]Entry `json:"entries"`      // Keyed by the original cache key
}

// loadIndex reads and validates the index from the durable tier.
//
// Loading is self-healing and never fails: a missing index yields an empty
// catalog, an unreadable or structurally broken index is discarded with a
// warning, and individual entries are dropped when they are invalid, keyed
// inconsistently, or point at an artifact that no longer exists. The cache
// then repopulates naturally on subsequent writes.
func loadIndex(backend durable.IBackend) (entries map[string]Entry, lastCleanup time.Time) {
	entries = make(map[string]Entry)

	data, err := backend.Read(indexLocation)
	if err != nil {
		if err != durable.ErrNotFound {
			logger.WithError(err).Warn("index unreadable, starting with empty catalog")
		}
		return entries, time.Time{}
	}

	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		logger.WithError(err).Warn("index corrupt, starting with empty catalog")
		return entries, time.Time{}
	}

	if idx.FormatVersion != formatVersion {
		logger.WithField("version", idx.FormatVersion).
			Warn("index has unknown format version, starting with empty catalog")
		return entries, time.Time{}
	}

	for key, entry := range idx.Entries {
		if !entry.Valid() || entry.Key != key {
			logger.WithField("key", key).Warn("dropping invalid index entry")
			continue
		}
		if !backend.Exists(entry.Location) {
			logger.WithFields(map[string]interface{}{
				"key":      key,
				"location": entry.Location,
			}).Warn("dropping index entry with missing artifact")
			continue
		}
		entries[key] = entry
	}

	if idx.LastCleanup > 0 {
		lastCleanup = time.Unix(0, idx.LastCleanup)
	}
	return entries, lastCleanup
}

// saveIndex writes the catalog back to the durable tier. The backend write
// is atomic, so a crash mid-save leaves the previous index intact.
func saveIndex(backend durable.IBackend, entries map[string]Entry, lastCleanup time.Time) error {
	idx := indexFile{
		FormatVersion: formatVersion,
		Entries:       entries,
	}
	if !lastCleanup.IsZero() {
		idx.LastCleanup = lastCleanup.UnixNano()
	}

	data, err := json.Marshal(&idx)
	if err != nil {
		return NewError(RetCInvalidOperation, fmt.Sprintf("failed to encode index: %v", err))
	}

	if err := backend.Write(indexLocation, data); err != nil {
		return NewError(RetCTransientIO, fmt.Sprintf("failed to write index: %v", err))
	}
	return nil
}
