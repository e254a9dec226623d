package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestConcurrencyBound verifies that at most MaxConcurrentOps operations are
// in flight simultaneously.
func TestConcurrencyBound(t *testing.T) {
	const maxOps = 4

	g := New(&Options{
		MaxConcurrentOps: maxOps,
		AcquireTimeout:   5 * time.Second,
		MaxRetryAttempts: 1,
	})

	var (
		inFlight atomic.Int64
		peak     atomic.Int64
		wg       sync.WaitGroup
	)

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Do(context.Background(), func() error {
				n := inFlight.Add(1)
				defer inFlight.Add(-1)

				// Track the high-water mark
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}

				time.Sleep(5 * time.Millisecond)
				return nil
			})
			if err != nil {
				t.Errorf("Do failed: %v", err)
			}
		}()
	}

	wg.Wait()

	if p := peak.Load(); p > maxOps {
		t.Errorf("observed %d concurrent ops, limit is %d", p, maxOps)
	}
}

// TestAcquireTimeout verifies that a full gate reports ErrAcquireTimeout
// without running the operation.
func TestAcquireTimeout(t *testing.T) {
	g := New(&Options{
		MaxConcurrentOps: 1,
		AcquireTimeout:   20 * time.Millisecond,
		MaxRetryAttempts: 1,
	})

	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = g.Do(context.Background(), func() error {
			close(started)
			<-block
			return nil
		})
	}()
	<-started

	ran := false
	err := g.Do(context.Background(), func() error {
		ran = true
		return nil
	})

	close(block)

	if !errors.Is(err, ErrAcquireTimeout) {
		t.Errorf("expected ErrAcquireTimeout, got %v", err)
	}
	if ran {
		t.Error("operation must not run when acquisition times out")
	}
}

// TestCanceledContext verifies that a canceled caller is reported as
// cancellation, not as slot exhaustion.
func TestCanceledContext(t *testing.T) {
	g := New(&Options{
		MaxConcurrentOps: 1,
		AcquireTimeout:   time.Second,
		MaxRetryAttempts: 1,
	})

	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = g.Do(context.Background(), func() error {
			close(started)
			<-block
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := g.Do(ctx, func() error {
		ran = true
		return nil
	})

	close(block)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrAcquireTimeout) {
		t.Error("cancellation must not be reported as acquire timeout")
	}
	if ran {
		t.Error("operation must not run when the caller is canceled")
	}
}

// TestRetryBypassesSlots verifies that Retry runs even while every
// concurrency slot is occupied.
func TestRetryBypassesSlots(t *testing.T) {
	g := New(&Options{
		MaxConcurrentOps: 1,
		AcquireTimeout:   50 * time.Millisecond,
		MaxRetryAttempts: 1,
	})

	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = g.Do(context.Background(), func() error {
			close(started)
			<-block
			return nil
		})
	}()
	<-started
	defer close(block)

	ran := false
	if err := g.Retry(context.Background(), func() error {
		ran = true
		return nil
	}); err != nil {
		t.Errorf("Retry failed with all slots occupied: %v", err)
	}
	if !ran {
		t.Error("Retry must run without waiting for a slot")
	}
}

// TestRetryAppliesPolicy verifies that Retry retries transient failures the
// same way Do does.
func TestRetryAppliesPolicy(t *testing.T) {
	g := New(&Options{
		MaxConcurrentOps: 1,
		AcquireTimeout:   time.Second,
		MaxRetryAttempts: 3,
		RetryDelay:       time.Millisecond,
	})

	attempts := 0
	err := g.Retry(context.Background(), func() error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected success after retry, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

// TestRetriesTransient verifies the attempt count and that each retry
// restarts the operation from scratch.
func TestRetriesTransient(t *testing.T) {
	g := New(&Options{
		MaxConcurrentOps: 1,
		AcquireTimeout:   time.Second,
		MaxRetryAttempts: 3,
		RetryDelay:       time.Millisecond,
	})

	attempts := 0
	err := g.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

// TestRetriesExhausted verifies that the last error is surfaced after the
// attempt limit.
func TestRetriesExhausted(t *testing.T) {
	g := New(&Options{
		MaxConcurrentOps: 1,
		AcquireTimeout:   time.Second,
		MaxRetryAttempts: 3,
		RetryDelay:       time.Millisecond,
	})

	sentinel := errors.New("still broken")
	attempts := 0
	err := g.Do(context.Background(), func() error {
		attempts++
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Errorf("expected the last error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

// TestPermanentNotRetried verifies that errors classified as non-transient
// fail immediately.
func TestPermanentNotRetried(t *testing.T) {
	permanent := errors.New("capacity exceeded")

	g := New(&Options{
		MaxConcurrentOps: 1,
		AcquireTimeout:   time.Second,
		MaxRetryAttempts: 3,
		RetryDelay:       time.Millisecond,
		RetryIf:          func(err error) bool { return !errors.Is(err, permanent) },
	})

	attempts := 0
	err := g.Do(context.Background(), func() error {
		attempts++
		return permanent
	})

	if !errors.Is(err, permanent) {
		t.Errorf("expected the permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("permanent error must not be retried, got %d attempts", attempts)
	}
}

// TestLinearBackoff verifies the linearly increasing delay between attempts.
func TestLinearBackoff(t *testing.T) {
	const delay = 30 * time.Millisecond

	g := New(&Options{
		MaxConcurrentOps: 1,
		AcquireTimeout:   time.Second,
		MaxRetryAttempts: 3,
		RetryDelay:       delay,
	})

	start := time.Now()
	attempts := 0
	_ = g.Do(context.Background(), func() error {
		attempts++
		return errors.New("transient")
	})
	elapsed := time.Since(start)

	// Expected waits: 1*delay after attempt 1, 2*delay after attempt 2
	if want := 3 * delay; elapsed < want {
		t.Errorf("expected at least %v of backoff, got %v", want, elapsed)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}
