// Package testutil provides deterministic substitutes for the emitter's
// wall clock and request ID generator, so scenarios produce byte-identical
// traces across runs.
package testutil

import (
	"sync"

	"github.com/strobelab/strobe/internal/timespec"
)

// FakeClock returns a programmable wall time.
//
// Unlike emitter.SystemClock it never advances on its own; tests move it
// explicitly, which keeps wall-seeded anchors reproducible.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type FakeClock struct {
	mu  sync.Mutex
	now timespec.TimeSpec
}

// NewFakeClock creates a FakeClock pinned at the given time.
func NewFakeClock(now timespec.TimeSpec) *FakeClock {
	return &FakeClock{now: now}
}

// Now returns the programmed time.
//
// Implements emitter.WallClock.
func (c *FakeClock) Now() timespec.TimeSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d seconds.
func (c *FakeClock) Advance(d float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set pins the clock to an absolute time.
func (c *FakeClock) Set(now timespec.TimeSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
