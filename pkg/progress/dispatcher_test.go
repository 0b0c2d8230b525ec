package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []int
	d := NewDispatcher(func(v int) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	}, WithBufferSize(16))

	for i := 0; i < 10; i++ {
		require.True(t, d.Post(i))
	}
	require.True(t, d.Close())

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
	assert.Equal(t, int64(10), d.Stats().Delivered)
	assert.False(t, d.Post(11), "closed dispatcher rejects events")
}

func TestDispatcherNeverBlocksOnSlowObserver(t *testing.T) {
	release := make(chan struct{})
	d := NewDispatcher(func(int) { <-release }, WithBufferSize(2), WithDrainTimeout(time.Second))

	start := time.Now()
	accepted := 0
	for i := 0; i < 100; i++ {
		if d.Post(i) {
			accepted++
		}
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.LessOrEqual(t, accepted, 3)
	assert.GreaterOrEqual(t, d.Stats().Dropped, int64(97))

	close(release)
	assert.True(t, d.Close())
}

func TestDispatcherSurvivesPanics(t *testing.T) {
	var mu sync.Mutex
	var recovered []interface{}
	var seen []int
	d := NewDispatcher(func(v int) {
		if v == 1 {
			panic("observer gone")
		}
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	}, WithPanicHandler(func(r interface{}) {
		mu.Lock()
		recovered = append(recovered, r)
		mu.Unlock()
	}))

	d.Post(0)
	d.Post(1)
	d.Post(2)
	require.True(t, d.Close())

	assert.Equal(t, []int{0, 2}, seen)
	assert.Equal(t, []interface{}{"observer gone"}, recovered)
	assert.Equal(t, int64(1), d.Stats().Panics)
}

func TestDispatcherCloseTimesOut(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	d := NewDispatcher(func(int) { <-block }, WithDrainTimeout(20*time.Millisecond))
	d.Post(1)
	assert.False(t, d.Close())
	assert.False(t, d.Close(), "Close is safe to call twice")
}

func TestNilObserver(t *testing.T) {
	d := NewDispatcher[int](nil)
	assert.False(t, d.Post(1))
	assert.True(t, d.Close())
}
