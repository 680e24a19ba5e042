package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	writes int32
}

func (s *recordingSink) Write(ctx context.Context, node string, item any, cause error) error {
	atomic.AddInt32(&s.writes, 1)
	return nil
}

func TestRunProcessesAllItems(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	results := Run(context.Background(), items, func(ctx context.Context, item int) (any, error) {
		return item * 2, nil
	}, Options{Concurrency: 3, Node: "double"})

	require.Len(t, results, len(items))
	sum := 0
	for _, r := range results {
		require.NoError(t, r.Err)
		sum += r.Output.(int)
	}
	assert.Equal(t, 30, sum)
}

func TestRunIsolatesPerItemFailures(t *testing.T) {
	items := []int{1, 2, 3, 4}
	sink := &recordingSink{}
	results := Run(context.Background(), items, func(ctx context.Context, item int) (any, error) {
		if item%2 == 0 {
			return nil, errors.New("even item rejected")
		}
		return item, nil
	}, Options{Concurrency: 2, Node: "reject-even", Sink: sink})

	require.Len(t, results, 4)
	assert.Len(t, Failed(results), 2)
	assert.Len(t, Succeeded(results), 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&sink.writes))
}

func TestRunRespectsConcurrencyBound(t *testing.T) {
	var current, max int32
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}

	Run(context.Background(), items, func(ctx context.Context, item int) (any, error) {
		n := atomic.AddInt32(&current, 1)
		for {
			m := atomic.LoadInt32(&max)
			if n <= m || atomic.CompareAndSwapInt32(&max, m, n) {
				break
			}
		}
		atomic.AddInt32(&current, -1)
		return nil, nil
	}, Options{Concurrency: 4, Node: "bound-check"})

	assert.LessOrEqual(t, atomic.LoadInt32(&max), int32(4))
}

func TestRunDefaultsToSerialWhenConcurrencyNonPositive(t *testing.T) {
	items := []int{1, 2, 3}
	results := Run(context.Background(), items, func(ctx context.Context, item int) (any, error) {
		return item, nil
	}, Options{Concurrency: 0, Node: "serial"})
	assert.Len(t, results, 3)
}
