// Package progress delivers progress events to an observer without ever
// blocking the producer.
package progress

import (
	"sync"
	"sync/atomic"
	"time"
)

// Dispatcher buffers events and hands them to a single observer function on
// its own goroutine. A slow observer loses events, a panicking one is
// recovered, and neither affects the caller of Post.
type Dispatcher[T any] struct {
	cfg     *config
	observe func(T)
	buffer  chan T
	done    chan struct{}

	closeOnce sync.Once
	closed    atomic.Bool
	mu        sync.RWMutex

	delivered atomic.Int64
	dropped   atomic.Int64
	panics    atomic.Int64
}

// NewDispatcher starts delivering to observe. A nil observe discards events.
func NewDispatcher[T any](observe func(T), opts ...Option) *Dispatcher[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	d := &Dispatcher[T]{
		cfg:     cfg,
		observe: observe,
		buffer:  make(chan T, cfg.bufferSize),
		done:    make(chan struct{}),
	}
	go d.process()
	return d
}

// Post queues an event and reports whether it was accepted.
func (d *Dispatcher[T]) Post(event T) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed.Load() || d.observe == nil {
		return false
	}
	select {
	case d.buffer <- event:
		return true
	default:
		d.dropped.Add(1)
		return false
	}
}

func (d *Dispatcher[T]) process() {
	defer close(d.done)
	for event := range d.buffer {
		d.deliver(event)
	}
}

func (d *Dispatcher[T]) deliver(event T) {
	defer func() {
		if r := recover(); r != nil {
			d.panics.Add(1)
			if d.cfg.panicHandler != nil {
				d.cfg.panicHandler(r)
			}
		}
	}()
	d.observe(event)
	d.delivered.Add(1)
}

// Close stops accepting events and waits, up to the drain timeout, for the
// queued ones. It reports whether the queue drained in time.
func (d *Dispatcher[T]) Close() bool {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed.Store(true)
		close(d.buffer)
		d.mu.Unlock()
	})
	select {
	case <-d.done:
		return true
	case <-time.After(d.cfg.drainTimeout):
		return false
	}
}

type Stats struct {
	Delivered int64
	Dropped   int64
	Panics    int64
}

func (d *Dispatcher[T]) Stats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
		Panics:    d.panics.Load(),
	}
}
