// Package ratelimiter provides small gates that limit how often an
// expensive operation may run.
package ratelimiter

import (
	"sync"
	"time"
)

// Cooldown allows an operation at most once per interval. Unlike a
// blocking limiter it never sleeps: callers that arrive inside the
// window are expected to serve cached state instead.
type Cooldown struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewCooldown creates a Cooldown with the given window.
func NewCooldown(interval time.Duration) *Cooldown {
	return &Cooldown{interval: interval, now: time.Now}
}

// Ready reports whether the window since the last marked run has
// elapsed. A fresh Cooldown is always ready.
func (c *Cooldown) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last.IsZero() || c.now().Sub(c.last) >= c.interval
}

// Mark records a completed run, starting a new window.
func (c *Cooldown) Mark() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = c.now()
}
