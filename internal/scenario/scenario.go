// Package scenario runs deterministic synthetic streams against an
// emitter.
//
// A scenario is a YAML file describing the emitter construction parameters
// and an ordered list of steps: trigger submissions and sample blocks with
// optional true-time markers. Scenarios drive `strobe run` and the golden
// trace tests; with the fake wall clock and sequential request IDs the
// same scenario always produces the same trace.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/strobelab/strobe/internal/config"
	"github.com/strobelab/strobe/internal/emitter"
	"github.com/strobelab/strobe/internal/stream"
	"github.com/strobelab/strobe/internal/testutil"
	"github.com/strobelab/strobe/internal/timebase"
	"github.com/strobelab/strobe/internal/timespec"
	"github.com/strobelab/strobe/internal/trigger"
)

// Scenario describes one synthetic run.
type Scenario struct {
	Name string  `yaml:"name"`
	Rate float64 `yaml:"rate"`

	// LoopGain distinguishes unset (nil, defaulted) from an explicit
	// zero, which is a valid gain that disables drift tracking.
	LoopGain *float64 `yaml:"loop_gain"`
	DropLate bool     `yaml:"drop_late"`

	// WallClock seeds the fake system clock, for runs whose first block
	// carries no marker.
	WallClock float64 `yaml:"wall_clock"`

	Steps []Step `yaml:"steps"`
}

// Step is either a submission or a block; exactly one must be set.
type Step struct {
	Submit *Submit    `yaml:"submit"`
	Block  *BlockStep `yaml:"block"`
}

// Submit describes one trigger submission; exactly one target form must
// be set.
type Submit struct {
	Sample *uint64     `yaml:"sample"`
	Time   *float64    `yaml:"time"`
	Pair   *[2]float64 `yaml:"pair"`
}

// BlockStep describes one processed block. Start defaults to extending
// the previous block contiguously; set it explicitly to simulate a gap.
type BlockStep struct {
	Start  *uint64 `yaml:"start"`
	Count  uint64  `yaml:"count"`
	Marker *Marker `yaml:"marker"`
}

// Marker is an in-band true-time tag. Offset defaults to the block start.
type Marker struct {
	Offset *uint64 `yaml:"offset"`
	Time   float64 `yaml:"time"`
}

// Event is one trace line: a submission or a terminal disposition.
type Event struct {
	Type          string // "submitted" | "emitted" | "dropped"
	RequestID     string
	Target        string  // rendered submission form
	Block         uint64  // start of the block that matured the request
	TriggerSample uint64  // emitted only
	LateDelta     float64 // emitted only
}

// Result is the full outcome of a run.
type Result struct {
	Scenario *Scenario
	Trace    []Event
	Matches  []trigger.Result
}

// Load reads and validates a scenario file, applying built-in defaults
// for construction parameters the file omits.
func Load(path string) (*Scenario, error) {
	return LoadWith(path, config.Default())
}

// LoadWith is Load with explicit defaults. The scenario file wins where
// it sets a value; cfg fills in rate, loop gain and the drop policy
// otherwise.
func LoadWith(path string, cfg config.Config) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: failed to read %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("scenario: failed to parse %s: %w", path, err)
	}
	if s.Rate == 0 {
		s.Rate = cfg.Rate
	}
	if s.LoopGain == nil {
		s.LoopGain = &cfg.LoopGain
	}
	if cfg.DropLate {
		s.DropLate = true
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks structural constraints before a run.
func (s *Scenario) Validate() error {
	if s.Rate <= 0 {
		return fmt.Errorf("scenario %q: rate must be positive, got %v", s.Name, s.Rate)
	}
	for i, step := range s.Steps {
		switch {
		case step.Submit == nil && step.Block == nil:
			return fmt.Errorf("scenario %q: step %d is neither submit nor block", s.Name, i)
		case step.Submit != nil && step.Block != nil:
			return fmt.Errorf("scenario %q: step %d is both submit and block", s.Name, i)
		case step.Submit != nil:
			if n := countForms(step.Submit); n != 1 {
				return fmt.Errorf("scenario %q: step %d must set exactly one target form, got %d", s.Name, i, n)
			}
		case step.Block != nil && step.Block.Count == 0:
			return fmt.Errorf("scenario %q: step %d block must have samples", s.Name, i)
		}
	}
	return nil
}

func countForms(sub *Submit) int {
	n := 0
	if sub.Sample != nil {
		n++
	}
	if sub.Time != nil {
		n++
	}
	if sub.Pair != nil {
		n++
	}
	return n
}

// Run executes the scenario against a fresh emitter and returns the trace.
func Run(s *Scenario) (*Result, error) {
	gain := timebase.DefaultLoopGain
	if s.LoopGain != nil {
		gain = *s.LoopGain
	}
	e, err := emitter.New(s.Rate, s.DropLate,
		emitter.WithLoopGain(gain),
		emitter.WithClock(testutil.NewFakeClock(timespec.FromSeconds(s.WallClock))),
		emitter.WithIDGenerator(testutil.NewSequentialIDs("req")),
	)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	res := &Result{Scenario: s}
	var nextStart uint64
	for i, step := range s.Steps {
		if step.Submit != nil {
			raw, rendered := step.Submit.raw()
			id, err := e.Submit(raw)
			if err != nil {
				return nil, fmt.Errorf("scenario %q: step %d: %w", s.Name, i, err)
			}
			res.Trace = append(res.Trace, Event{Type: "submitted", RequestID: id, Target: rendered})
			continue
		}

		start := nextStart
		if step.Block.Start != nil {
			start = *step.Block.Start
		}
		span := stream.Span{Start: start, Count: step.Block.Count}
		if m := step.Block.Marker; m != nil {
			offset := start
			if m.Offset != nil {
				offset = *m.Offset
			}
			span.Tags = []stream.Tag{{Offset: offset, Time: timespec.FromSeconds(m.Time)}}
		}

		for _, match := range e.ProcessSpan(span) {
			res.Matches = append(res.Matches, match)
			ev := Event{RequestID: match.Request.ID, Block: start}
			if match.Dropped {
				ev.Type = "dropped"
			} else {
				ev.Type = "emitted"
				ev.TriggerSample = match.Event.TriggerSample
				ev.LateDelta = match.Event.LateDelta
			}
			res.Trace = append(res.Trace, ev)
		}
		nextStart = span.End()
	}
	return res, nil
}

// raw returns the submission payload in the form the emitter accepts plus
// a stable rendering for traces.
func (sub *Submit) raw() (any, string) {
	switch {
	case sub.Sample != nil:
		return *sub.Sample, fmt.Sprintf("sample:%d", *sub.Sample)
	case sub.Time != nil:
		return *sub.Time, fmt.Sprintf("time:%.9f", *sub.Time)
	default:
		return *sub.Pair, fmt.Sprintf("pair:%.0f+%.9f", sub.Pair[0], sub.Pair[1])
	}
}
