package progress

import "time"

// Option configures a Dispatcher.
type Option func(*config)

type config struct {
	bufferSize   int
	drainTimeout time.Duration
	// panicHandler sees panics raised by the observer. The dispatcher keeps
	// delivering afterwards.
	panicHandler func(interface{})
}

func defaultConfig() *config {
	return &config{
		bufferSize:   64,
		drainTimeout: 2 * time.Second,
	}
}

// WithBufferSize sets how many events may wait for a slow observer before
// new ones are dropped.
func WithBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithDrainTimeout bounds how long Close waits for queued events.
func WithDrainTimeout(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.drainTimeout = d
		}
	}
}

// WithPanicHandler is called with the value of every observer panic.
func WithPanicHandler(h func(interface{})) Option {
	return func(c *config) {
		c.panicHandler = h
	}
}
