package trigger

import (
	"github.com/strobelab/strobe/internal/stream"
	"github.com/strobelab/strobe/internal/timebase"
	"github.com/strobelab/strobe/internal/timespec"
)

// Result is the outcome of one matured request: either an emitted Event or
// a silent drop under the drop-late policy.
type Result struct {
	Request Request
	Event   *Event // nil when Dropped
	Dropped bool
}

// Match evaluates pending requests against one processed span.
//
// Requests are popped in target-time order from the queue front while they
// mature inside or behind the span; the first still-pending request ends
// the pass, so work is proportional to the matured count. For each matured
// request:
//
//   - the trigger sample is the request's sample index, or the time base's
//     nearest sample for a time-form target, resolved at match time;
//   - a target strictly before the span with DropLate set is removed
//     without emission;
//   - otherwise an Event is built with LateDelta measured against the time
//     base in effect now, not at enqueue time.
//
// Lateness is measured at block granularity: a target behind the span is
// considered raised at the span's first covered sample. Sub-block
// positions of already-consumed samples are not modeled.
func Match(q *Queue, tr *timebase.Tracker, span stream.Span) []Result {
	if span.Count == 0 {
		return nil
	}

	var results []Result
	for {
		req, ok := q.Front()
		if !ok {
			break
		}

		triggerSample, targetTime := resolve(req.Target, tr)
		if triggerSample > span.Last() {
			// Still in the future: this and everything behind it stays
			// pending untouched.
			break
		}
		q.PopFront()

		if triggerSample < span.Start && req.DropLate {
			results = append(results, Result{Request: req, Dropped: true})
			continue
		}

		raisedAt := triggerSample
		if raisedAt < span.Start {
			raisedAt = span.Start
		}
		results = append(results, Result{
			Request: req,
			Event: &Event{
				TriggerTime:   req.Raw,
				TriggerSample: triggerSample,
				LateDelta:     tr.SampleToTime(raisedAt).Diff(targetTime),
				RequestID:     req.ID,
			},
		})
	}
	return results
}

// resolve maps a target to its trigger sample and requested true time
// under the current time base.
func resolve(t Target, tr *timebase.Tracker) (uint64, timespec.TimeSpec) {
	if t.Kind == TargetSample {
		return t.Sample, tr.SampleToTime(t.Sample)
	}
	return tr.TimeToSample(t.Time), t.Time
}
