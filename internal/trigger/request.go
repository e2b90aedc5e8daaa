package trigger

// Request is one outstanding trigger. Immutable after enqueue: its only
// transition is leaving the queue, exactly once, as emitted or dropped.
type Request struct {
	// ID correlates the request through debug logs and the journal.
	ID string

	// Target is the parsed target.
	Target Target

	// Raw is the submission payload exactly as received, echoed back as
	// the emitted event's TriggerTime.
	Raw any

	// DropLate, when set, discards the request silently if its target has
	// already passed when it is evaluated.
	DropLate bool
}

// Event is the record published for a matured request.
// Constructed once and never mutated.
type Event struct {
	// TriggerTime is the original request payload, verbatim, in whatever
	// form it was submitted.
	TriggerTime any

	// TriggerSample is the sample index at which the trigger matured.
	TriggerSample uint64

	// LateDelta is the realized timing error in seconds. Positive means
	// the event could only be raised after the requested instant; it can
	// never be raised before a sample boundary exists for it.
	LateDelta float64

	// RequestID is the ID of the originating request.
	RequestID string
}
