package dataflow

import (
	"time"
)

// Option configures Map and ForEach.
type Option func(*config)

type config struct {
	workers    int
	maxRetries int
	backoff    func(int) time.Duration
}

func defaultConfig() *config {
	return &config{
		workers: 1,
	}
}

// WithWorkers sets the number of concurrent workers.
// Default is 1 (sequential).
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithRetry retries a failing item up to maxRetries times, sleeping
// backoff(attempt) before each retry when backoff is not nil.
func WithRetry(maxRetries int, backoff func(attempt int) time.Duration) Option {
	return func(c *config) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}
