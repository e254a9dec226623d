package memstore

import (
	"testing"

	"github.com/c-colloid/previewcache/lib/durable"
	durabletesting "github.com/c-colloid/previewcache/lib/durable/testing"
)

func TestConformance(t *testing.T) {
	durabletesting.RunBackendTests(t, "MemoryBackend", func() (durable.IBackend, error) {
		return New(0), nil
	})
}
