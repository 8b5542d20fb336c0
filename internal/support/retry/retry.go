// Package retry provides the reusable retry helper used by every network
// call in the harvester. Components never hand-roll retry loops; they declare
// a Policy and run the operation through Do.
package retry

import (
	"context"
	"time"

	"github.com/lblod/verenigingen-harvester/internal/support/exception"
	"github.com/lblod/verenigingen-harvester/internal/support/logger"
)

// Policy defines retry behaviour for an operation.
type Policy interface {
	// ShouldRetry determines if a given error is retryable.
	ShouldRetry(err error) bool
	// BackoffInterval returns the wait before the next attempt.
	// attempt is the attempt number that just failed (starting from 1).
	BackoffInterval(attempt int) time.Duration
	// MaxAttempts returns the total attempt budget (first try included).
	MaxAttempts() int
}

// fixedPolicy retries with a constant delay between attempts.
type fixedPolicy struct {
	maxAttempts int
	interval    time.Duration
	shouldRetry func(error) bool
}

// NewFixedPolicy creates a Policy with a fixed delay between attempts.
// When shouldRetry is nil, exception.IsRetryable is used.
func NewFixedPolicy(maxAttempts int, interval time.Duration, shouldRetry func(error) bool) Policy {
	if shouldRetry == nil {
		shouldRetry = exception.IsRetryable
	}
	return &fixedPolicy{
		maxAttempts: maxAttempts,
		interval:    interval,
		shouldRetry: shouldRetry,
	}
}

func (p *fixedPolicy) ShouldRetry(err error) bool {
	return p.shouldRetry(err)
}

func (p *fixedPolicy) BackoffInterval(attempt int) time.Duration {
	return p.interval
}

func (p *fixedPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// linearPolicy waits base + slope*attempt between attempts. It retries every
// error; it is used for best-effort ledger writes where the caller drops the
// operation after the budget is exhausted.
type linearPolicy struct {
	maxAttempts int
	base        time.Duration
	slope       time.Duration
}

// NewLinearPolicy creates a Policy whose backoff grows linearly with the
// attempt number.
func NewLinearPolicy(maxAttempts int, base, slope time.Duration) Policy {
	return &linearPolicy{maxAttempts: maxAttempts, base: base, slope: slope}
}

func (p *linearPolicy) ShouldRetry(err error) bool {
	return err != nil
}

func (p *linearPolicy) BackoffInterval(attempt int) time.Duration {
	return p.base + time.Duration(attempt)*p.slope
}

func (p *linearPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// Do runs op until it succeeds, returns a non-retryable error, or the policy's
// attempt budget is exhausted. The last error is returned in the latter case.
// Context cancellation aborts immediately, including during backoff waits.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts(); attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !p.ShouldRetry(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts() {
			break
		}

		wait := p.BackoffInterval(attempt)
		logger.Warnf("Operation failed (attempt %d/%d), retrying after %v: %v", attempt, p.MaxAttempts(), wait, lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}

// Verify interfaces
var _ Policy = (*fixedPolicy)(nil)
var _ Policy = (*linearPolicy)(nil)
