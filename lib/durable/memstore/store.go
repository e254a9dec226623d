package memstore

import (
	"fmt"
	"strings"

	"github.com/c-colloid/previewcache/lib/durable"
	"github.com/puzpuzpuz/xsync/v3"
)

// defaultMaxArtifactSize matches the file backend's default cap
const defaultMaxArtifactSize = 10 << 20

// storeImpl implements durable.IBackend on a concurrent in-process map.
// It exists for tests and comparison runs; contents do not survive the
// process. Writes into the map are atomic by construction, which trivially
// satisfies the atomic-replace contract.
type storeImpl struct {
	data    *xsync.MapOf[string, []byte]
	maxSize int64
}

// New creates an in-memory backend. A maxSize of 0 uses the same default
// per-artifact cap as the file backend.
func New(maxSize int64) durable.IBackend {
	if maxSize <= 0 {
		maxSize = defaultMaxArtifactSize
	}
	return &storeImpl{
		data:    xsync.NewMapOf[string, []byte](),
		maxSize: maxSize,
	}
}

func validate(location string) error {
	if location == "" || strings.ContainsAny(location, `/\`) {
		return durable.ErrBadLocation
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see durable/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Write(location string, data []byte) error {
	if err := validate(location); err != nil {
		return err
	}
	if int64(len(data)) > s.maxSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", durable.ErrTooLarge, len(data), s.maxSize)
	}

	// Copy to prevent aliasing with the caller's buffer
	cp := make([]byte, len(data))
	copy(cp, data)

	s.data.Store(location, cp)
	return nil
}

func (s *storeImpl) Read(location string) ([]byte, error) {
	if err := validate(location); err != nil {
		return nil, err
	}

	data, ok := s.data.Load(location)
	if !ok {
		return nil, durable.ErrNotFound
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *storeImpl) Exists(location string) bool {
	if validate(location) != nil {
		return false
	}
	_, ok := s.data.Load(location)
	return ok
}

func (s *storeImpl) Remove(location string) error {
	if err := validate(location); err != nil {
		return err
	}
	s.data.Delete(location)
	return nil
}

func (s *storeImpl) List() ([]string, error) {
	var locations []string
	s.data.Range(func(location string, _ []byte) bool {
		if strings.HasSuffix(location, durable.ArtifactExt) {
			locations = append(locations, location)
		}
		return true
	})
	return locations, nil
}

func (s *storeImpl) Close() error {
	s.data.Clear()
	return nil
}
