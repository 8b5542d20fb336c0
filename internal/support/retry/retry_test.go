package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lblod/verenigingen-harvester/internal/support/exception"
	"github.com/lblod/verenigingen-harvester/internal/support/retry"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	p := retry.NewFixedPolicy(5, time.Millisecond, nil)

	calls := 0
	err := retry.Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientUntilSuccess(t *testing.T) {
	p := retry.NewFixedPolicy(5, time.Millisecond, nil)

	calls := 0
	err := retry.Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return exception.Newf("m", exception.KindTransientNetwork, "timeout")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryableError(t *testing.T) {
	p := retry.NewFixedPolicy(5, time.Millisecond, nil)

	calls := 0
	rejection := exception.Newf("m", exception.KindUpstreamRejection, "status 500")
	err := retry.Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return rejection
	})

	assert.Equal(t, rejection, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttemptBudget(t *testing.T) {
	p := retry.NewFixedPolicy(3, time.Millisecond, nil)

	calls := 0
	err := retry.Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return exception.Newf("m", exception.KindTransientNetwork, "timeout")
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancellationAborts(t *testing.T) {
	p := retry.NewFixedPolicy(5, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := retry.Do(ctx, p, func(ctx context.Context) error {
		calls++
		return exception.Newf("m", exception.KindTransientNetwork, "timeout")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestLinearPolicy_BackoffGrowsWithAttempt(t *testing.T) {
	p := retry.NewLinearPolicy(5, 30*time.Second, 600*time.Millisecond)

	assert.Equal(t, 30*time.Second+600*time.Millisecond, p.BackoffInterval(1))
	assert.Equal(t, 30*time.Second+3*600*time.Millisecond, p.BackoffInterval(3))
	assert.Equal(t, 5, p.MaxAttempts())
	assert.True(t, p.ShouldRetry(errors.New("anything")))
}
