package cache

// --------------------------------------------------------------------------
// Entry and Artifact Types
// --------------------------------------------------------------------------

// formatVersion identifies the on-disk layout of artifacts and the index.
// Entries recorded with a different version are discarded on load.
const formatVersion = 1

// Entry holds the metadata for one cached artifact. Entries live in the
// in-memory catalog and are persisted to the index file; the artifact bytes
// themselves live only in the durable tier.
type Entry struct {
	Key           string `json:"key"`            // Original cache key
	Location      string `json:"location"`       // Durable-tier location (hashed key + extension)
	Width         int    `json:"width"`          // Pixel width of the bitmap
	Height        int    `json:"height"`         // Pixel height of the bitmap
	SizeBytes     int64  `json:"size_bytes"`     // Payload size in the durable tier
	Checksum      string `json:"checksum"`       // Integrity digest over the full payload
	FormatVersion int    `json:"format_version"` // Layout version the entry was written with
	CreatedAt     int64  `json:"created_at"`     // Unix nanos at first write
	LastAccess    int64  `json:"last_access"`    // Unix nanos at last read or write
}

// Valid reports whether the entry is structurally usable. Entries failing
// this check are dropped during index load (self-healing) instead of being
// surfaced to lookups.
func (e *Entry) Valid() bool {
	return e.Key != "" &&
		e.Location != "" &&
		e.Width > 0 &&
		e.Height > 0 &&
		e.SizeBytes > 0 &&
		e.FormatVersion == formatVersion
}

// Artifact is the payload exchanged through the public API: the rendered
// bitmap bytes plus the dimensions needed to interpret them.
type Artifact struct {
	Data   []byte // Raw bitmap bytes
	Width  int    // Pixel width
	Height int    // Pixel height
}
