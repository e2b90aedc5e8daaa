// Package trigger holds pending trigger requests and matches them against
// processed sample spans.
//
// A request targets either a raw sample index or an absolute true time
// (given as a float64 seconds value or a (seconds, fraction) pair). The
// original submission payload is preserved verbatim and echoed back on the
// emitted event, whatever form it took.
package trigger

import (
	"math"

	"github.com/strobelab/strobe/internal/timespec"
)

// TargetKind distinguishes the two target domains.
type TargetKind int

const (
	// TargetSample targets a raw sample index.
	TargetSample TargetKind = iota + 1
	// TargetTime targets an absolute true time.
	TargetTime
)

// Target is the parsed, tagged form of a request target.
type Target struct {
	Kind   TargetKind
	Sample uint64            // valid when Kind == TargetSample
	Time   timespec.TimeSpec // valid when Kind == TargetTime
}

// ParseTarget validates a submission payload and returns its tagged form.
//
// Accepted forms:
//   - unsigned or non-negative signed integers: sample index
//   - float64 / float32: absolute time in seconds
//   - timespec.TimeSpec: absolute time
//   - a two-element slice or [2]float64: (seconds, fraction) pair
//
// Anything else is rejected with ErrCodeUnrecognizedTarget and never
// enters the queue.
func ParseTarget(raw any) (Target, error) {
	switch v := raw.(type) {
	case uint64:
		return Target{Kind: TargetSample, Sample: v}, nil
	case uint:
		return Target{Kind: TargetSample, Sample: uint64(v)}, nil
	case uint32:
		return Target{Kind: TargetSample, Sample: uint64(v)}, nil
	case int:
		if v < 0 {
			return Target{}, NewNegativeTargetError(raw)
		}
		return Target{Kind: TargetSample, Sample: uint64(v)}, nil
	case int64:
		if v < 0 {
			return Target{}, NewNegativeTargetError(raw)
		}
		return Target{Kind: TargetSample, Sample: uint64(v)}, nil
	case float64:
		return parseSeconds(raw, v)
	case float32:
		return parseSeconds(raw, float64(v))
	case timespec.TimeSpec:
		return Target{Kind: TargetTime, Time: v}, nil
	case [2]float64:
		return parsePair(raw, v[0], v[1])
	case []any:
		if len(v) != 2 {
			return Target{}, NewUnrecognizedTargetError(raw)
		}
		sec, okSec := asFloat(v[0])
		frac, okFrac := asFloat(v[1])
		if !okSec || !okFrac {
			return Target{}, NewUnrecognizedTargetError(raw)
		}
		return parsePair(raw, sec, frac)
	default:
		return Target{}, NewUnrecognizedTargetError(raw)
	}
}

func parseSeconds(raw any, s float64) (Target, error) {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return Target{}, NewUnrecognizedTargetError(raw)
	}
	if s < 0 {
		return Target{}, NewNegativeTargetError(raw)
	}
	return Target{Kind: TargetTime, Time: timespec.FromSeconds(s)}, nil
}

func parsePair(raw any, sec, frac float64) (Target, error) {
	if sec < 0 || frac < 0 || math.IsNaN(sec) || math.IsNaN(frac) {
		return Target{}, NewNegativeTargetError(raw)
	}
	if sec != math.Trunc(sec) || math.IsInf(sec, 0) || math.IsInf(frac, 0) {
		return Target{}, NewUnrecognizedTargetError(raw)
	}
	return Target{Kind: TargetTime, Time: timespec.New(uint64(sec), frac)}, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
