// Package bus distributes emitted trigger events to subscribers without
// blocking the block-processing path.
//
// Publish is fire-and-forget: events are fanned out to subscriber channels
// and dropped for any subscriber whose channel is full. The emitter must
// finish a block in bounded time, so it never waits on a slow consumer;
// subscribers size their channels for the burst rate they can absorb.
package bus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/strobelab/strobe/internal/trigger"
)

var (
	// ErrSubscriberExists is returned when Subscribe is called with a
	// duplicate id.
	ErrSubscriberExists = errors.New("bus: subscriber id already exists")

	// ErrSubscriberNotFound is returned when Unsubscribe is called with an
	// unknown id.
	ErrSubscriberNotFound = errors.New("bus: subscriber id not found")

	// ErrClosed is returned for operations on a closed bus.
	ErrClosed = errors.New("bus: closed")
)

// Stats is a snapshot of bus counters.
type Stats struct {
	Published uint64
	Sent      uint64
	Dropped   uint64
}

// Bus fans trigger events out to named subscriber channels.
// All methods are safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]chan<- trigger.Event
	closed bool

	published atomic.Uint64
	sent      atomic.Uint64
	dropped   atomic.Uint64
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string]chan<- trigger.Event)}
}

// Subscribe registers a channel to receive every published event.
func (b *Bus) Subscribe(id string, ch chan<- trigger.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if _, ok := b.subs[id]; ok {
		return ErrSubscriberExists
	}
	b.subs[id] = ch
	return nil
}

// Unsubscribe removes a subscriber by id.
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if _, ok := b.subs[id]; !ok {
		return ErrSubscriberNotFound
	}
	delete(b.subs, id)
	return nil
}

// Publish sends the event to all subscribers without blocking. Full
// subscriber channels drop the event. Publishing on a closed bus is a
// silent no-op.
func (b *Bus) Publish(ev trigger.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	b.published.Add(1)
	for _, ch := range b.subs {
		select {
		case ch <- ev:
			b.sent.Add(1)
		default:
			b.dropped.Add(1)
		}
	}
}

// Stats returns a snapshot of the counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Sent:      b.sent.Load(),
		Dropped:   b.dropped.Load(),
	}
}

// Close stops the bus. Subsequent Subscribe/Unsubscribe return ErrClosed
// and Publish discards events. Subscriber channels are not closed; their
// owners close them.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.closed = true
	b.subs = nil
	return nil
}
