package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strobelab/strobe/internal/stream"
	"github.com/strobelab/strobe/internal/timebase"
	"github.com/strobelab/strobe/internal/timespec"
)

// anchoredTracker returns a 1 kHz tracker with sample 0 at t=0.
func anchoredTracker(t *testing.T) *timebase.Tracker {
	t.Helper()
	tr, err := timebase.New(1000, timebase.DefaultLoopGain)
	require.NoError(t, err)
	tr.ObserveAnchor(0, timespec.New(0, 0), true)
	return tr
}

func TestMatch_InSpanSampleTarget(t *testing.T) {
	tr := anchoredTracker(t)
	q := NewQueue()
	q.Insert(sampleReq("r1", 1500), key(1.5))

	results := Match(q, tr, stream.Span{Start: 1000, Count: 1000})
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Event)
	assert.Equal(t, uint64(1500), results[0].Event.TriggerSample)
	assert.Zero(t, results[0].Event.LateDelta, "sample target defines its own requested time")
	assert.Equal(t, uint64(1500), results[0].Event.TriggerTime)
	assert.Zero(t, q.Len())
}

func TestMatch_InSpanTimeTarget(t *testing.T) {
	tr := anchoredTracker(t)
	q := NewQueue()
	// 1.4995 s at 1 kHz rounds to sample 1500 (half-period early).
	req := Request{ID: "r1", Target: Target{Kind: TargetTime, Time: timespec.FromSeconds(1.4995)}, Raw: 1.4995}
	q.Insert(req, key(1.4995))

	results := Match(q, tr, stream.Span{Start: 1000, Count: 1000})
	require.Len(t, results, 1)
	ev := results[0].Event
	require.NotNil(t, ev)
	assert.Equal(t, uint64(1500), ev.TriggerSample)
	assert.InDelta(t, 0.0005, ev.LateDelta, 1e-9)
	assert.Equal(t, 1.4995, ev.TriggerTime)
}

func TestMatch_FutureTargetStaysPending(t *testing.T) {
	tr := anchoredTracker(t)
	q := NewQueue()
	q.Insert(sampleReq("future", 5000), key(5.0))

	results := Match(q, tr, stream.Span{Start: 0, Count: 1000})
	assert.Empty(t, results)
	assert.Equal(t, 1, q.Len())
}

func TestMatch_LateDropPolicy(t *testing.T) {
	tr := anchoredTracker(t)
	q := NewQueue()
	req := sampleReq("late", 500)
	req.DropLate = true
	q.Insert(req, key(0.5))

	results := Match(q, tr, stream.Span{Start: 1000, Count: 1000})
	require.Len(t, results, 1)
	assert.True(t, results[0].Dropped)
	assert.Nil(t, results[0].Event, "dropped request must not emit")
	assert.Zero(t, q.Len())
}

func TestMatch_LateEmitWithPositiveDelta(t *testing.T) {
	tr := anchoredTracker(t)
	q := NewQueue()
	q.Insert(sampleReq("late", 500), key(0.5))

	results := Match(q, tr, stream.Span{Start: 1000, Count: 1000})
	require.Len(t, results, 1)
	ev := results[0].Event
	require.NotNil(t, ev)
	assert.Equal(t, uint64(500), ev.TriggerSample)
	// Raised at the span's first sample (1.0 s), requested at 0.5 s.
	assert.InDelta(t, 0.5, ev.LateDelta, 1e-9)
}

func TestMatch_MultipleInAscendingTargetOrder(t *testing.T) {
	tr := anchoredTracker(t)
	q := NewQueue()
	q.Insert(sampleReq("third", 1800), key(1.8))
	q.Insert(sampleReq("first", 1200), key(1.2))
	q.Insert(Request{ID: "second", Target: Target{Kind: TargetTime, Time: timespec.FromSeconds(1.5)}, Raw: 1.5}, key(1.5))

	results := Match(q, tr, stream.Span{Start: 1000, Count: 1000})
	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Request.ID)
	assert.Equal(t, "second", results[1].Request.ID)
	assert.Equal(t, "third", results[2].Request.ID)
}

func TestMatch_EmptySpanNoResults(t *testing.T) {
	tr := anchoredTracker(t)
	q := NewQueue()
	q.Insert(sampleReq("r", 0), key(0))

	results := Match(q, tr, stream.Span{Start: 1000, Count: 0})
	assert.Empty(t, results)
	assert.Equal(t, 1, q.Len())
}

func TestMatch_NoRequestEvaluatedTwice(t *testing.T) {
	tr := anchoredTracker(t)
	q := NewQueue()
	q.Insert(sampleReq("once", 1500), key(1.5))

	span := stream.Span{Start: 1000, Count: 1000}
	first := Match(q, tr, span)
	require.Len(t, first, 1)

	// Re-running the same span finds nothing: the terminal transition
	// happened exactly once.
	second := Match(q, tr, span)
	assert.Empty(t, second)
}
