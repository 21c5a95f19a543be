// Package ask implements the one-shot, deadline-bound "ask" continuation
// described in spec §3 ("Pending continuation") and §9 ("Ask continuation").
package ask

import (
	"sync"
	"time"
)

// Callback consumes the next recognized utterance.
type Callback func(text string)

// Continuation is a mutex-protected optional callback with an expiry.
// Consumption is a compare-and-clear operation: at most one caller ever
// observes a given install as eligible (invariant P4).
type Continuation struct {
	mu       sync.Mutex
	callback Callback
	timeout  time.Duration
	expires  time.Time
}

// Install replaces any pending continuation with a new one that expires
// after timeout. Only one continuation may be pending at a time — a new
// Install silently discards a prior, unconsumed one (spec §4.6 "ask").
func (c *Continuation) Install(cb Callback, timeout time.Duration, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = cb
	c.timeout = timeout
	c.expires = now.Add(timeout)
}

// TryConsume atomically clears and returns the pending callback if one is
// installed and arrival <= its deadline. Returns ok=false otherwise, in
// which case the caller should fall through to normal processing.
func (c *Continuation) TryConsume(arrival time.Time) (cb Callback, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.callback == nil || c.expires.IsZero() {
		return nil, false
	}
	if arrival.After(c.expires) {
		return nil, false
	}

	cb = c.callback
	c.callback = nil
	c.expires = time.Time{}
	return cb, true
}
