package fanout_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lblod/verenigingen-harvester/internal/fanout"
)

func TestMap_PreservesInputOrder(t *testing.T) {
	items := []int{5, 3, 8, 1, 9, 2}

	results, err := fanout.Map(context.Background(), items, 3, func(ctx context.Context, n int) (string, error) {
		// Finish out of order to prove positional pairing.
		time.Sleep(time.Duration(n) * time.Millisecond)
		return fmt.Sprintf("r%d", n), nil
	})

	require.NoError(t, err)
	require.Len(t, results, len(items))
	for i, n := range items {
		assert.Equal(t, fmt.Sprintf("r%d", n), results[i])
	}
}

func TestMap_BoundsParallelism(t *testing.T) {
	const parallelism = 2

	var active, peak int32
	var mu sync.Mutex

	items := make([]int, 20)
	_, err := fanout.Map(context.Background(), items, parallelism, func(ctx context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt32(&active, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return struct{}{}, nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, peak, int32(parallelism))
}

func TestMap_SurfacesWorkerFailure(t *testing.T) {
	items := []string{"a", "b", "c"}

	results, err := fanout.Map(context.Background(), items, 2, func(ctx context.Context, s string) (string, error) {
		if s == "b" {
			return "", fmt.Errorf("partition %s failed", s)
		}
		return s, nil
	})

	assert.Nil(t, results)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "partition b failed")
}

func TestMap_CollectsMultipleFailures(t *testing.T) {
	items := []int{1, 2, 3, 4}

	_, err := fanout.Map(context.Background(), items, 4, func(ctx context.Context, n int) (int, error) {
		if n%2 == 0 {
			return 0, fmt.Errorf("item %d failed", n)
		}
		return n, nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 2 failed")
	assert.Contains(t, err.Error(), "item 4 failed")
}

func TestMap_EmptyInput(t *testing.T) {
	results, err := fanout.Map(context.Background(), nil, 4, func(ctx context.Context, s string) (string, error) {
		return s, nil
	})

	require.NoError(t, err)
	assert.Empty(t, results)
}
