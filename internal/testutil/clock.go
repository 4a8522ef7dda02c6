package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start time for StepClock.
var Epoch = time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

// StepClock is a deterministic clock for tests.
//
// Each call to Now returns the start time plus n steps, where n is the number
// of earlier calls. Two runs of the same scenario observe the same timestamps,
// which keeps golden output byte-identical.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	n     int64
}

// NewStepClock creates a clock starting at start and advancing by step.
// A zero start uses Epoch; a zero step never advances.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	if start.IsZero() {
		start = Epoch
	}
	return &StepClock{start: start.UTC(), step: step}
}

// Now returns the next timestamp.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// Calls returns how many times Now has been called.
func (c *StepClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Reset rewinds the clock to its start time.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
