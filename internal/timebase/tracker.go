// Package timebase reconciles a sample counter against sporadically
// observed true-time markers.
//
// The tracker keeps exactly one authoritative anchor - the most recently
// observed (sample index, true time) pair - plus a drift-corrected sample
// period. Conversions in either direction always go through the current
// anchor; anchor replacement never rewinds the conversion's meaning, it
// only re-bases it.
//
// Drift between the nominal rate and the data source's real clock is
// tracked by a proportional feedback loop fed with the prediction error at
// each anchor observation. The loop state survives anchor replacement and
// rate changes: it is the system's best running estimate of clock skew,
// not a property of any one anchor.
package timebase

import (
	"fmt"
	"math"

	"github.com/strobelab/strobe/internal/timespec"
)

// Anchor is the authoritative (sample index, true time) correspondence.
type Anchor struct {
	SampleIndex uint64
	TrueTime    timespec.TimeSpec
}

// Tracker converts between sample indices and estimated true time.
//
// Not safe for concurrent use; the owner serializes access (the emitter
// holds its own lock around every tracker call).
type Tracker struct {
	rate      float64
	anchor    Anchor
	anchored  bool
	driftLoop loop
}

// New creates a Tracker for the given nominal sample rate.
// The rate must be positive; the gain is only required to be finite.
func New(rate, loopGain float64) (*Tracker, error) {
	if rate <= 0 || math.IsNaN(rate) {
		return nil, fmt.Errorf("timebase: rate must be positive, got %v", rate)
	}
	if math.IsNaN(loopGain) || math.IsInf(loopGain, 0) {
		return nil, fmt.Errorf("timebase: loop gain must be finite, got %v", loopGain)
	}
	return &Tracker{
		rate:      rate,
		driftLoop: loop{gain: loopGain},
	}, nil
}

// SetRate replaces the nominal sample rate.
//
// The anchor and the drift state are intentionally kept: a rate change
// reflects a known hardware reconfiguration, not a correction to an
// estimation error.
func (tr *Tracker) SetRate(rate float64) error {
	if rate <= 0 || math.IsNaN(rate) {
		return fmt.Errorf("timebase: rate must be positive, got %v", rate)
	}
	tr.rate = rate
	return nil
}

// Rate returns the nominal sample rate in Hz.
func (tr *Tracker) Rate() float64 {
	return tr.rate
}

// Skew returns the current drift estimate (fractional period excess).
func (tr *Tracker) Skew() float64 {
	return tr.driftLoop.skew
}

// Anchored reports whether a true-time marker has been adopted yet.
func (tr *Tracker) Anchored() bool {
	return tr.anchored
}

// Anchor returns the authoritative anchor. Only meaningful once Anchored().
func (tr *Tracker) Anchor() Anchor {
	return tr.anchor
}

// period returns the drift-corrected seconds per sample.
func (tr *Tracker) period() float64 {
	return 1 / (tr.rate * tr.driftLoop.Factor())
}

// SampleToTime estimates the true time at the given sample index using the
// current anchor and drift-corrected rate. Indices before the anchor
// extrapolate backward.
func (tr *Tracker) SampleToTime(idx uint64) timespec.TimeSpec {
	var delta float64
	if idx >= tr.anchor.SampleIndex {
		delta = float64(idx - tr.anchor.SampleIndex)
	} else {
		delta = -float64(tr.anchor.SampleIndex - idx)
	}
	return tr.anchor.TrueTime.Add(delta * tr.period())
}

// TimeToSample estimates the sample index nearest to the given true time.
// Times before sample zero clamp to zero.
func (tr *Tracker) TimeToSample(t timespec.TimeSpec) uint64 {
	offset := t.Diff(tr.anchor.TrueTime) / tr.period()
	idx := math.Round(float64(tr.anchor.SampleIndex) + offset)
	if idx < 0 {
		return 0
	}
	return uint64(idx)
}

// ObserveAnchor adopts (idx, observed) as the new authoritative anchor.
//
// When a prior anchor exists and the caller vouches that the stream was
// contiguous since it was adopted, the signed error between the tracker's
// own prediction for idx and the observed time is fed to the drift loop
// first. On the first marker, on a discontinuity, or when the marker does
// not advance the sample counter, the drift state is left untouched - the
// predicted-vs-observed comparison would be meaningless - but the anchor
// is adopted unconditionally.
//
// The returned error value is the normalized prediction error fed to the
// loop (zero when no drift update happened), exposed for diagnostics.
func (tr *Tracker) ObserveAnchor(idx uint64, observed timespec.TimeSpec, contiguous bool) float64 {
	defer func() {
		tr.anchor = Anchor{SampleIndex: idx, TrueTime: observed}
		tr.anchored = true
	}()

	if !tr.anchored || !contiguous || idx <= tr.anchor.SampleIndex {
		return 0
	}

	predicted := tr.SampleToTime(idx)
	interval := predicted.Diff(tr.anchor.TrueTime)
	if interval <= 0 {
		return 0
	}
	err := observed.Diff(predicted) / interval
	tr.driftLoop.Update(err)
	return err
}
