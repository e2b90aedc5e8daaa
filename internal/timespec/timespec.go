// Package timespec provides the split-seconds time representation used by
// true-time markers and trigger requests.
//
// A TimeSpec carries whole seconds as an unsigned 64-bit integer and the
// fractional part as a float64 in [0, 1). Keeping the whole seconds out of
// the float mantissa preserves sub-microsecond resolution at arbitrary
// absolute times, which a bare float64 epoch value cannot do past ~2^23
// seconds.
package timespec

import "math"

// TimeSpec is an absolute time split into whole and fractional seconds.
//
// Invariant: 0 <= Frac < 1. All constructors and arithmetic normalize;
// a TimeSpec built by struct literal must satisfy the invariant itself.
type TimeSpec struct {
	Sec  uint64
	Frac float64
}

// New builds a normalized TimeSpec from whole and fractional seconds.
func New(sec uint64, frac float64) TimeSpec {
	return TimeSpec{Sec: sec, Frac: frac}.normalize()
}

// FromSeconds converts a float64 epoch value to a TimeSpec.
// Negative inputs clamp to zero.
func FromSeconds(s float64) TimeSpec {
	if s <= 0 || math.IsNaN(s) {
		return TimeSpec{}
	}
	whole := math.Floor(s)
	return TimeSpec{Sec: uint64(whole), Frac: s - whole}.normalize()
}

// Seconds flattens the TimeSpec to a float64 epoch value.
// Resolution degrades for large Sec; prefer Diff for deltas.
func (t TimeSpec) Seconds() float64 {
	return float64(t.Sec) + t.Frac
}

// Add returns t shifted forward (or backward, for negative d) by d seconds.
// Shifts past zero clamp to the zero TimeSpec.
func (t TimeSpec) Add(d float64) TimeSpec {
	if d >= 0 {
		whole := math.Floor(d)
		return TimeSpec{Sec: t.Sec + uint64(whole), Frac: t.Frac + (d - whole)}.normalize()
	}
	back := -d
	whole := math.Floor(back)
	fracBack := back - whole
	sec := t.Sec
	frac := t.Frac - fracBack
	if frac < 0 {
		frac++
		whole++
	}
	if uint64(whole) > sec {
		return TimeSpec{}
	}
	return TimeSpec{Sec: sec - uint64(whole), Frac: frac}.normalize()
}

// Diff returns t − u in seconds. The whole-second difference is taken in
// integer arithmetic first so precision is kept even when Sec is large.
func (t TimeSpec) Diff(u TimeSpec) float64 {
	var wholeDelta float64
	if t.Sec >= u.Sec {
		wholeDelta = float64(t.Sec - u.Sec)
	} else {
		wholeDelta = -float64(u.Sec - t.Sec)
	}
	return wholeDelta + (t.Frac - u.Frac)
}

// Before reports whether t is strictly earlier than u.
func (t TimeSpec) Before(u TimeSpec) bool {
	if t.Sec != u.Sec {
		return t.Sec < u.Sec
	}
	return t.Frac < u.Frac
}

// After reports whether t is strictly later than u.
func (t TimeSpec) After(u TimeSpec) bool {
	return u.Before(t)
}

// normalize folds any overflowed fractional part into Sec and restores
// the 0 <= Frac < 1 invariant.
func (t TimeSpec) normalize() TimeSpec {
	if t.Frac >= 1 {
		carry := math.Floor(t.Frac)
		t.Sec += uint64(carry)
		t.Frac -= carry
	}
	if t.Frac < 0 {
		// Borrow from Sec; callers never produce more than one second
		// of negative fraction.
		if t.Sec == 0 {
			return TimeSpec{}
		}
		t.Sec--
		t.Frac++
	}
	return t
}
