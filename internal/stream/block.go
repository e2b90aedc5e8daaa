// Package stream defines the sample-block metadata the timing core
// consumes.
//
// Payload samples are pass-through: the trigger engine never inspects
// them, so Block is parameterized over the element type while the core
// operates on Span, which carries only the covered index range and any
// in-band true-time markers. One timing implementation serves every
// payload width.
package stream

import "github.com/strobelab/strobe/internal/timespec"

// Tag is an in-band true-time marker: at absolute sample index Offset,
// the true time was Time. Hardware emits one at stream start and again
// after overflows or other discontinuities.
type Tag struct {
	Offset uint64
	Time   timespec.TimeSpec
}

// Span is the payload-free view of a block: the covered sample-index
// range plus its markers. This is all the timing core ever sees.
type Span struct {
	Start uint64
	Count uint64
	Tags  []Tag
}

// End returns the exclusive upper sample index of the span.
func (s Span) End() uint64 {
	return s.Start + s.Count
}

// Last returns the last covered sample index.
// Only meaningful for non-empty spans.
func (s Span) Last() uint64 {
	return s.Start + s.Count - 1
}

// Contiguous reports whether the span extends the stream without a gap,
// given the exclusive end of the previously processed span.
func (s Span) Contiguous(prevEnd uint64) bool {
	return s.Start == prevEnd
}

// Block is one batch of samples handed over by the host scheduler.
// Tags carry absolute sample offsets, not block-relative ones.
type Block[T any] struct {
	Start uint64
	Data  []T
	Tags  []Tag
}

// Len returns the number of samples in the block.
func (b Block[T]) Len() uint64 {
	return uint64(len(b.Data))
}

// Span strips the payload, leaving the metadata the timing core needs.
func (b Block[T]) Span() Span {
	return Span{Start: b.Start, Count: b.Len(), Tags: b.Tags}
}
