// Package emitter wires the time-base tracker and the trigger queue into
// the block-processing engine.
//
// The host scheduler owns one Emitter for its configured lifetime and
// calls ProcessSpan synchronously, once per arriving block; there are no
// internal goroutines and no suspension points inside a block. Trigger
// submission is asynchronous: Submit may be driven from any goroutine, so
// a single mutex guards the pending queue together with every time-base
// read and write. Emitted events leave through the bus, fire-and-forget.
package emitter

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/strobelab/strobe/internal/bus"
	"github.com/strobelab/strobe/internal/stream"
	"github.com/strobelab/strobe/internal/timebase"
	"github.com/strobelab/strobe/internal/timespec"
	"github.com/strobelab/strobe/internal/trigger"
)

// Interface is the capability set the host scheduler programs against.
// Emitter is the single concrete implementation.
type Interface interface {
	ProcessSpan(span stream.Span) []trigger.Result
	Submit(raw any) (string, error)
	SetRate(rate float64) error
	SetDebug(on bool)
}

// IDGenerator mints request IDs.
// Implemented by UUIDGenerator (production) and testutil.SequentialIDs (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator mints time-sortable UUIDv7 request IDs.
type UUIDGenerator struct{}

// Generate returns a new UUIDv7 as a hyphenated string.
func (UUIDGenerator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Emitter matches pending trigger requests against processed sample spans.
type Emitter struct {
	mu       sync.Mutex
	tracker  *timebase.Tracker
	queue    *trigger.Queue
	dropLate bool

	// Stream continuity across blocks.
	lastEnd    uint64
	seen       bool
	wallSeeded bool // anchor came from the wall clock, not a marker

	clock  WallClock
	ids    IDGenerator
	events *bus.Bus // nil when no outbound bus is wired
	log    *slog.Logger
	debug  atomic.Bool

	// loopGain is consulted once, at construction, when the tracker is
	// built; options set it before the tracker exists.
	loopGain float64
}

var _ Interface = (*Emitter)(nil)

// Option configures an Emitter.
type Option func(*Emitter) error

// WithLoopGain overrides the default drift loop gain.
func WithLoopGain(gain float64) Option {
	return func(e *Emitter) error {
		e.loopGain = gain
		return nil
	}
}

// WithClock substitutes the wall clock used to seed the time base before
// the first marker.
func WithClock(c WallClock) Option {
	return func(e *Emitter) error {
		e.clock = c
		return nil
	}
}

// WithBus attaches the outbound event bus.
func WithBus(b *bus.Bus) Option {
	return func(e *Emitter) error {
		e.events = b
		return nil
	}
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Emitter) error {
		e.log = l
		return nil
	}
}

// WithIDGenerator substitutes the request ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Emitter) error {
		e.ids = g
		return nil
	}
}

// New creates an Emitter for the given sample rate.
//
// rate must be positive; otherwise construction fails with no partial
// state. dropLate is inherited by every submitted request. The drift loop
// gain defaults to timebase.DefaultLoopGain.
func New(rate float64, dropLate bool, opts ...Option) (*Emitter, error) {
	e := &Emitter{
		queue:    trigger.NewQueue(),
		dropLate: dropLate,
		loopGain: timebase.DefaultLoopGain,
		clock:    SystemClock{},
		ids:      UUIDGenerator{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	tr, err := timebase.New(rate, e.loopGain)
	if err != nil {
		return nil, fmt.Errorf("emitter: %w", err)
	}
	e.tracker = tr
	return e, nil
}

// Submit parses and enqueues one trigger request, returning its ID.
//
// Fire-and-forget: the request is inserted in target-time order and the
// call returns; evaluation happens on the next processed block. Malformed
// targets are rejected here with a *trigger.RequestError and never enter
// the queue. A target already behind the stream is accepted - it simply
// matures immediately on the next block and the drop-late policy decides
// its fate.
func (e *Emitter) Submit(raw any) (string, error) {
	target, err := trigger.ParseTarget(raw)
	if err != nil {
		return "", err
	}
	req := trigger.Request{
		ID:       e.ids.Generate(),
		Target:   target,
		Raw:      raw,
		DropLate: e.dropLate,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	key := e.targetKey(target)
	e.queue.Insert(req, key)
	if e.debug.Load() {
		e.log.Debug("request enqueued",
			"id", req.ID, "raw", raw, "key_seconds", key.Seconds(), "pending", e.queue.Len())
	}
	return req.ID, nil
}

// targetKey resolves a target to its ordering key: the estimated target
// true time under the current time base. Caller holds e.mu.
func (e *Emitter) targetKey(t trigger.Target) timespec.TimeSpec {
	if t.Kind == trigger.TargetSample {
		return e.tracker.SampleToTime(t.Sample)
	}
	return t.Time
}

// ProcessSpan advances the time base over one block's span and evaluates
// the pending queue against it.
//
// Marker tags are applied in offset order; a tag arriving after a stream
// gap (the span does not extend the previous one contiguously) still
// replaces the anchor but is excluded from the drift-error computation.
// If no marker has ever been seen, the first block seeds the anchor from
// the wall clock so time-form requests have a reference point; the first
// real marker then re-bases without a drift update.
//
// Matured requests are returned in ascending target order and, for the
// emitted ones, published to the bus. Work is bounded by the matured
// count, plus a queue re-key on blocks that adopt an anchor.
func (e *Emitter) ProcessSpan(span stream.Span) []trigger.Result {
	if span.Count == 0 {
		return nil
	}

	e.mu.Lock()
	contiguous := !e.seen || span.Contiguous(e.lastEnd)

	tags := make([]stream.Tag, len(span.Tags))
	copy(tags, span.Tags)
	sort.Slice(tags, func(i, j int) bool { return tags[i].Offset < tags[j].Offset })

	adopted := len(tags) > 0
	for i, tag := range tags {
		tagContig := contiguous || i > 0
		if e.wallSeeded {
			tagContig = false
			e.wallSeeded = false
		}
		errVal := e.tracker.ObserveAnchor(tag.Offset, tag.Time, tagContig)
		if e.debug.Load() {
			e.log.Debug("anchor adopted",
				"sample", tag.Offset, "time", tag.Time.Seconds(),
				"contiguous", tagContig, "loop_error", errVal, "skew", e.tracker.Skew())
		}
	}

	if !e.tracker.Anchored() {
		now := e.clock.Now()
		e.tracker.ObserveAnchor(span.Start, now, false)
		e.wallSeeded = true
		adopted = true
		if e.debug.Load() {
			e.log.Debug("anchor seeded from wall clock",
				"sample", span.Start, "time", now.Seconds())
		}
	}

	// An anchor adoption re-maps sample indices to time. Sample-form keys
	// computed at submission can then order the queue wrongly - a stale
	// early key at the front would hide a matured request behind it - so
	// recompute keys before matching.
	if adopted && e.queue.Len() > 0 {
		e.queue.Rekey(func(req trigger.Request) timespec.TimeSpec {
			return e.targetKey(req.Target)
		})
	}

	results := trigger.Match(e.queue, e.tracker, span)
	e.lastEnd = span.End()
	e.seen = true
	e.mu.Unlock()

	for _, r := range results {
		if r.Dropped {
			if e.debug.Load() {
				e.log.Debug("request dropped late", "id", r.Request.ID)
			}
			continue
		}
		if e.debug.Load() {
			e.log.Debug("trigger emitted",
				"id", r.Request.ID, "sample", r.Event.TriggerSample,
				"late_delta", r.Event.LateDelta)
		}
		if e.events != nil {
			e.events.Publish(*r.Event)
		}
	}
	return results
}

// SetRate updates the nominal sample rate. The anchor and drift state are
// kept: a rate change is a known hardware reconfiguration, not an
// estimation error.
func (e *Emitter) SetRate(rate float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.SetRate(rate)
}

// SetDebug toggles verbose diagnostic logging of every anchor update and
// trigger evaluation. It has no effect on timing semantics.
func (e *Emitter) SetDebug(on bool) {
	e.debug.Store(on)
}

// Pending returns the number of queued requests. Diagnostic only.
func (e *Emitter) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Len()
}

// Skew returns the current drift estimate. Diagnostic only.
func (e *Emitter) Skew() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Skew()
}

// Process forwards a typed block's metadata to ProcessSpan. The payload is
// pass-through: the element type plays no role in timing.
func Process[T any](e *Emitter, b stream.Block[T]) []trigger.Result {
	return e.ProcessSpan(b.Span())
}
