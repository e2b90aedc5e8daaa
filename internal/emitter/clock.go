package emitter

import (
	"time"

	"github.com/strobelab/strobe/internal/timespec"
)

// WallClock supplies the host system time used to seed the time base
// before the first true-time marker arrives.
// Implemented by SystemClock (production) and testutil.FakeClock (tests).
type WallClock interface {
	Now() timespec.TimeSpec
}

// SystemClock reads the host's real-time clock.
type SystemClock struct{}

// Now returns the current system time as a TimeSpec.
func (SystemClock) Now() timespec.TimeSpec {
	t := time.Now()
	return timespec.New(uint64(t.Unix()), float64(t.Nanosecond())/1e9)
}
