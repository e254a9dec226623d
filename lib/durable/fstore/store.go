package fstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/c-colloid/previewcache/lib/durable"
)

// --------------------------------------------------------------------------
// Constants and Options
// --------------------------------------------------------------------------

const (
	// tmpPattern is the os.CreateTemp pattern for in-flight writes. Temp
	// files live in the same directory as their final location so the
	// rename is atomic (same filesystem).
	tmpPattern = ".artifact-*.tmp"

	// defaultMaxArtifactSize caps single artifacts at 10 MiB
	defaultMaxArtifactSize = 10 << 20
)

// Options configures the file backend behavior during initialization
type Options struct {
	MaxArtifactSize int64 // Per-artifact size cap in bytes (0 = use default)
}

// DefaultOptions returns the default file backend options
func DefaultOptions() *Options {
	return &Options{
		MaxArtifactSize: defaultMaxArtifactSize,
	}
}

// --------------------------------------------------------------------------
// File Backend
// --------------------------------------------------------------------------

// storeImpl implements durable.IBackend on a flat directory of files
type storeImpl struct {
	dir     string
	maxSize int64
}

// New creates a file backend rooted at dir, creating the directory if
// needed. Leftover temporary files from writes interrupted by a crash are
// swept once at construction; no other process may be writing to the
// directory at that point (concurrent processes sharing one cache root are
// unsupported).
func New(dir string, opts *Options) (durable.IBackend, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.MaxArtifactSize <= 0 {
		opts.MaxArtifactSize = defaultMaxArtifactSize
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fstore: create cache dir: %w", err)
	}

	s := &storeImpl{
		dir:     dir,
		maxSize: opts.MaxArtifactSize,
	}
	s.sweepTemp()

	return s, nil
}

// sweepTemp removes temporary files left behind by interrupted writes.
// A retry never resumes a previous temp file, so anything matching the
// pattern is garbage.
func (s *storeImpl) sweepTemp() {
	matches, err := filepath.Glob(filepath.Join(s.dir, ".artifact-*.tmp"))
	if err != nil {
		return
	}
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

// resolve validates a location and returns its absolute path
func (s *storeImpl) resolve(location string) (string, error) {
	if location == "" || strings.ContainsAny(location, `/\`) || location != filepath.Base(location) {
		return "", durable.ErrBadLocation
	}
	return filepath.Join(s.dir, location), nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see durable/interface.go)
// --------------------------------------------------------------------------

// Write stores data at location using the temp-file-plus-rename pattern:
// the bytes are written to a fresh temporary file in the same directory,
// fsynced, and then renamed over the final location. Readers therefore never
// observe a partially written artifact. Every attempt starts from a fresh
// temp file; a failed attempt removes its own temp file.
func (s *storeImpl) Write(location string, data []byte) error {
	path, err := s.resolve(location)
	if err != nil {
		return err
	}

	// Capacity check before any I/O
	if int64(len(data)) > s.maxSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", durable.ErrTooLarge, len(data), s.maxSize)
	}

	tmp, err := os.CreateTemp(s.dir, tmpPattern)
	if err != nil {
		return fmt.Errorf("fstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// Any failure from here on discards the temp file
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return fail(fmt.Errorf("fstore: write temp file: %w", err))
	}

	// fsync before rename so the rename never publishes a file whose
	// contents are still only in the page cache
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("fstore: sync temp file: %w", err))
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("fstore: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("fstore: rename temp file: %w", err)
	}

	return nil
}

func (s *storeImpl) Read(location string) ([]byte, error) {
	path, err := s.resolve(location)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, durable.ErrNotFound
		}
		return nil, fmt.Errorf("fstore: read artifact: %w", err)
	}
	return data, nil
}

func (s *storeImpl) Exists(location string) bool {
	path, err := s.resolve(location)
	if err != nil {
		return false
	}

	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (s *storeImpl) Remove(location string) error {
	path, err := s.resolve(location)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("fstore: remove artifact: %w", err)
	}
	return nil
}

func (s *storeImpl) List() ([]string, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("fstore: list artifacts: %w", err)
	}

	var locations []string
	for _, e := range dirEntries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), durable.ArtifactExt) {
			locations = append(locations, e.Name())
		}
	}
	return locations, nil
}

func (s *storeImpl) Close() error {
	return nil
}
