package trigger

import (
	"sort"

	"github.com/strobelab/strobe/internal/timespec"
)

// entry pairs a request with its ordering key: the target's true time as
// estimated by the time base when the key was last computed.
type entry struct {
	req Request
	key timespec.TimeSpec
}

// Queue is the pending-request collection, kept sorted by target time.
//
// Identical requests are independent entries; there is no duplicate
// suppression. The queue carries no lock of its own - the emitter's single
// mutex guards queue mutation together with time-base reads and writes, so
// an asynchronously arriving insertion cannot race an in-progress match
// pass.
type Queue struct {
	entries []entry
}

// NewQueue creates an empty pending queue.
func NewQueue() *Queue {
	return &Queue{entries: make([]entry, 0, 16)}
}

// Insert adds a request at its position in target-time order. Entries with
// equal keys keep insertion order (the new entry goes after them).
func (q *Queue) Insert(req Request, key timespec.TimeSpec) {
	i := sort.Search(len(q.entries), func(i int) bool {
		return q.entries[i].key.After(key)
	})
	q.entries = append(q.entries, entry{})
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = entry{req: req, key: key}
}

// Rekey recomputes every entry's key and restores sort order. Sample-form
// keys are estimates under the time base at computation; once the anchor
// is replaced they can disagree with the current sample-to-time mapping,
// and a stale early key at the front would shadow a matured request behind
// it. Entries whose keys stay equal keep their relative order.
func (q *Queue) Rekey(keyOf func(Request) timespec.TimeSpec) {
	for i := range q.entries {
		q.entries[i].key = keyOf(q.entries[i].req)
	}
	sort.SliceStable(q.entries, func(i, j int) bool {
		return q.entries[i].key.Before(q.entries[j].key)
	})
}

// Front returns the earliest pending request without removing it.
func (q *Queue) Front() (Request, bool) {
	if len(q.entries) == 0 {
		return Request{}, false
	}
	return q.entries[0].req, true
}

// PopFront removes and returns the earliest pending request. Removal is
// the request's single terminal transition; the caller decides emitted
// versus dropped.
func (q *Queue) PopFront() (Request, bool) {
	if len(q.entries) == 0 {
		return Request{}, false
	}
	e := q.entries[0]
	// Nil out the slot so the Raw payload does not outlive the request.
	q.entries[0] = entry{}
	q.entries = q.entries[1:]
	if len(q.entries) == 0 {
		q.entries = q.entries[:0]
	}
	return e.req, true
}

// Len returns the number of pending requests.
func (q *Queue) Len() int {
	return len(q.entries)
}
