package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelLimit_PreservesOrder(t *testing.T) {
	fns := make([]func(context.Context) (int, error), 0, 5)
	for i := range 5 {
		fns = append(fns, func(context.Context) (int, error) {
			time.Sleep(time.Duration(5-i) * time.Millisecond)

			return i * 10, nil
		})
	}

	results, err := ParallelLimit(context.Background(), 2, fns...)

	require.NoError(t, err)
	assert.Equal(t, []int{0, 10, 20, 30, 40}, results)
}

func TestParallelLimit_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32

	fns := make([]func(context.Context) (struct{}, error), 0, 8)
	for range 8 {
		fns = append(fns, func(context.Context) (struct{}, error) {
			n := running.Add(1)
			defer running.Add(-1)

			for {
				current := peak.Load()
				if n <= current || peak.CompareAndSwap(current, n) {
					break
				}
			}

			time.Sleep(2 * time.Millisecond)

			return struct{}{}, nil
		})
	}

	_, err := ParallelLimit(context.Background(), 3, fns...)

	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestParallelLimit_ReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")

	_, err := ParallelLimit(context.Background(), 2,
		func(context.Context) (int, error) { return 1, nil },
		func(context.Context) (int, error) { return 0, boom },
	)

	require.ErrorIs(t, err, boom)
}
