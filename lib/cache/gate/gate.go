// Package gate bounds the number of simultaneous durable-store mutations and
// retries transient failures with a linearly increasing backoff.
//
// The gate is a counting semaphore with a bounded acquisition wait: an
// operation that cannot obtain a slot within the configured timeout fails
// immediately with ErrAcquireTimeout and leaves no partial state, because
// the guarded operation has not begun. Once a slot is held, the operation is
// run through a retry loop; each attempt restarts the operation from scratch
// (the cache's write path creates a fresh temporary file per attempt, it
// never resumes a previous one).
//
// Only mutations consume slots. Reads go through Retry, which applies the
// same retry policy but never waits for a slot, so any number of reads can
// run in parallel and a burst of slow writes cannot starve them.
//
// Retries block the calling goroutine for the backoff duration. The cache is
// invoked synchronously from caller goroutines and is not on a
// latency-critical path, so a blocking wait keeps the contract simple.
package gate

import (
	"context"
	"errors"
	"time"

	retry "github.com/avast/retry-go/v5"
	"golang.org/x/sync/semaphore"
)

// ErrAcquireTimeout is returned when no concurrency slot became available
// within the configured wait. The guarded operation was never started.
var ErrAcquireTimeout = errors.New("gate: acquire timed out")

// RetryIfFunc decides whether an error is transient and worth retrying.
// Returning false stops the retry loop immediately and surfaces the error.
type RetryIfFunc func(err error) bool

// Options configures the gate behavior during initialization
type Options struct {
	MaxConcurrentOps int64         // Number of concurrency slots
	AcquireTimeout   time.Duration // Bounded wait for a slot
	MaxRetryAttempts uint          // Total attempts per operation (first try included)
	RetryDelay       time.Duration // Base delay, attempt n waits n*RetryDelay
	RetryIf          RetryIfFunc   // Transient-failure classifier (nil = retry everything)
}

// DefaultOptions returns the default gate options
func DefaultOptions() *Options {
	return &Options{
		MaxConcurrentOps: 4,
		AcquireTimeout:   5 * time.Second,
		MaxRetryAttempts: 3,
		RetryDelay:       100 * time.Millisecond,
	}
}

// Gate bounds concurrent operations and applies the retry policy.
// All methods are safe for concurrent use.
type Gate struct {
	sem            *semaphore.Weighted
	acquireTimeout time.Duration
	attempts       uint
	retryDelay     time.Duration
	retryIf        RetryIfFunc
}

// New creates a gate from the given options (nil = defaults)
func New(opts *Options) *Gate {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.MaxConcurrentOps <= 0 {
		opts.MaxConcurrentOps = 1
	}
	if opts.MaxRetryAttempts == 0 {
		opts.MaxRetryAttempts = 1
	}

	return &Gate{
		sem:            semaphore.NewWeighted(opts.MaxConcurrentOps),
		acquireTimeout: opts.AcquireTimeout,
		attempts:       opts.MaxRetryAttempts,
		retryDelay:     opts.RetryDelay,
		retryIf:        opts.RetryIf,
	}
}

// Do runs op while holding one concurrency slot.
//
// If no slot becomes available within the acquisition timeout (or ctx is
// canceled first), Do returns ErrAcquireTimeout without running op. Once a
// slot is held, op is attempted up to the configured number of times with a
// linearly increasing delay between attempts (attempt n waits n*RetryDelay);
// only errors the classifier reports as transient are retried. The error of
// the last attempt is returned.
func (g *Gate) Do(ctx context.Context, op func() error) error {
	acquireCtx, cancel := context.WithTimeout(ctx, g.acquireTimeout)
	defer cancel()

	if err := g.sem.Acquire(acquireCtx, 1); err != nil {
		// A canceled caller is not slot exhaustion
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return ErrAcquireTimeout
	}
	defer g.sem.Release(1)

	return g.attempt(ctx, op)
}

// Retry runs op under the retry policy without consuming a concurrency slot.
// Used for read operations, which run unbounded and must not contend with
// mutations for slots.
func (g *Gate) Retry(ctx context.Context, op func() error) error {
	return g.attempt(ctx, op)
}

func (g *Gate) attempt(ctx context.Context, op func() error) error {
	retryIf := g.retryIf
	if retryIf == nil {
		retryIf = func(error) bool { return true }
	}

	return retry.New(
		retry.Context(ctx),
		retry.Attempts(g.attempts),
		retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
			// n is 0 for the delay after the first failed attempt
			return time.Duration(n+1) * g.retryDelay
		}),
		retry.RetryIf(func(err error) bool { return retryIf(err) }),
		retry.LastErrorOnly(true),
	).Do(op)
}
