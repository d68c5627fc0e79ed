package scenario

import "sync"

// ErrorCounters tracks consecutive failures per action kind across all
// scenarios. Outbound delivery actions consult their counter and become
// warn-and-skip no-ops once the kind's threshold is exceeded; any success
// of the kind resets its counter, as does an operator ACK.
type ErrorCounters struct {
	mu     sync.Mutex
	counts map[string]int
	limits map[string]int
}

// NewErrorCounters creates empty counters.
func NewErrorCounters() *ErrorCounters {
	return &ErrorCounters{
		counts: map[string]int{},
		limits: map[string]int{},
	}
}

// SetLimit configures the max_error_attempts threshold for an action
// kind. A non-positive limit disables skipping for that kind.
func (c *ErrorCounters) SetLimit(kind string, limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limits[kind] = limit
}

// Failure increments the kind's consecutive failure count and returns
// the new value.
func (c *ErrorCounters) Failure(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[kind]++
	return c.counts[kind]
}

// Success resets the kind's consecutive failure count.
func (c *ErrorCounters) Success(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[kind] = 0
}

// Count returns the kind's current consecutive failure count.
func (c *ErrorCounters) Count(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[kind]
}

// Exhausted reports whether the kind has reached its threshold.
func (c *ErrorCounters) Exhausted(kind string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	limit := c.limits[kind]
	return limit > 0 && c.counts[kind] >= limit
}

// ResetAll clears every counter. Called on operator ACK.
func (c *ErrorCounters) ResetAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for kind := range c.counts {
		c.counts[kind] = 0
	}
}
