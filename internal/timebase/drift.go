package timebase

// DefaultLoopGain is the drift loop gain used when none is configured.
const DefaultLoopGain = 0.0001

// loop is the single-pole drift estimator.
//
// State is a dimensionless skew: the estimated fractional excess of the
// true sample period over the nominal one. skew = 0 means the source clock
// matches the nominal rate exactly; skew = 1e-6 means each sample takes
// 1 ppm longer than nominal.
//
// Update applies the proportional feedback step
//
//	skew ← skew + gain · err
//
// where err is the normalized prediction error (observed minus predicted,
// divided by the predicted interval). For a constant true skew d the
// residual d − skew contracts geometrically with ratio (1 − gain), so any
// gain in (0, 1) converges without divergence.
//
// Stability tuning is the caller's contract: gain >= m/(m+c), with m the
// maximum expected drift rate and c the maximal noise amplitude in the
// error signal. The loop never validates this.
type loop struct {
	gain float64
	skew float64
}

// Update folds one normalized error observation into the skew estimate
// and returns the new skew.
func (l *loop) Update(err float64) float64 {
	l.skew += l.gain * err
	return l.skew
}

// Factor returns the multiplicative rate correction implied by the skew:
// the effective rate is nominal rate times this factor.
func (l *loop) Factor() float64 {
	return 1 / (1 + l.skew)
}
