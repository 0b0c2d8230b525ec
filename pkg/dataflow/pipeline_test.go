package dataflow_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/vacation_reports/pkg/dataflow"
)

func TestMapKeepsOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	results := dataflow.Map(context.Background(), items, func(_ context.Context, n int) (string, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		if n == 4 {
			return "", fmt.Errorf("bad %d", n)
		}
		return fmt.Sprintf("#%d", n), nil
	}, dataflow.WithWorkers(3))

	require.Len(t, results, len(items))
	assert.Equal(t, "#5", results[0].Value)
	assert.Equal(t, "#1", results[1].Value)
	assert.EqualError(t, results[2].Err, "bad 4")
	assert.Equal(t, "#3", results[4].Value)
}

func TestMapRetries(t *testing.T) {
	var calls int32
	results := dataflow.Map(context.Background(), []string{"flaky"}, func(_ context.Context, s string) (string, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return "", errors.New("locked")
		}
		return s, nil
	}, dataflow.WithRetry(3, func(int) time.Duration { return time.Millisecond }))

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "flaky", results[0].Value)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestMapCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := dataflow.Map(ctx, []int{1, 2, 3}, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestForEachFirstError(t *testing.T) {
	err := dataflow.ForEach(context.Background(), []int{1, 2, 3}, func(_ context.Context, n int) error {
		if n >= 2 {
			return fmt.Errorf("item %d", n)
		}
		return nil
	}, dataflow.WithWorkers(2))
	assert.EqualError(t, err, "item 2")
}
