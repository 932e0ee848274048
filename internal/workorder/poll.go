package workorder

import "time"

// PollOption adjusts a single GetResult call.
type PollOption func(*pollConfig)

type pollConfig struct {
	interval    time.Duration
	maxAttempts int
}

// WithMaxAttempts bounds the number of result queries. Zero means unbounded.
func WithMaxAttempts(n int) PollOption {
	return func(c *pollConfig) {
		if n >= 0 {
			c.maxAttempts = n
		}
	}
}

// WithInterval overrides the client's poll interval for this call.
func WithInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}
