package cache

import (
	"testing"
	"time"
)

// TestCollectorCounters tests hit/miss accounting and derived rates
func TestCollectorCounters(t *testing.T) {
	c := newCollector()

	if c.lookups() != 0 || c.hitRate() != 0 || c.avgAccessTime() != 0 {
		t.Error("fresh collector should report zeroes")
	}

	start := time.Now().Add(-time.Millisecond)
	c.recordHit(start)
	c.recordHit(start)
	c.recordMiss(start)
	c.recordMiss(start)

	if c.lookups() != 4 {
		t.Errorf("expected 4 lookups, got %d", c.lookups())
	}
	if rate := c.hitRate(); rate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %f", rate)
	}
	if avg := c.avgAccessTime(); avg < time.Millisecond {
		t.Errorf("expected average >= 1ms, got %v", avg)
	}
}

// TestCollectorAdvisory tests that the low-hit-rate advisory fires exactly
// once, and only after enough lookups.
func TestCollectorAdvisory(t *testing.T) {
	c := newCollector()
	start := time.Now()

	// All misses, but not enough lookups yet
	for i := 0; i < lowHitRateMinLookups; i++ {
		c.recordMiss(start)
	}
	if c.shouldAdvise() {
		t.Error("advisory must not fire before the lookup threshold")
	}

	c.recordMiss(start)
	if !c.shouldAdvise() {
		t.Error("advisory should fire after the threshold with a low hit rate")
	}
	if c.shouldAdvise() {
		t.Error("advisory must fire only once")
	}
}

// TestCollectorAdvisoryHighHitRate tests that a healthy cache never advises
func TestCollectorAdvisoryHighHitRate(t *testing.T) {
	c := newCollector()
	start := time.Now()

	for i := 0; i < 20; i++ {
		c.recordHit(start)
	}
	c.recordMiss(start)

	if c.shouldAdvise() {
		t.Error("advisory must not fire with a high hit rate")
	}
}
