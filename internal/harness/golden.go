// Package harness compares scenario traces against golden files.
//
// Scenarios run with the fake wall clock and sequential request IDs, so
// the same scenario produces a byte-identical trace on every run; the
// golden file is the source of truth for expected behavior. Late deltas
// are rendered with fixed nanosecond precision so float formatting can
// never destabilize the comparison.
package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/strobelab/strobe/internal/scenario"
)

// TraceSnapshot is the canonical JSON form of a scenario trace.
type TraceSnapshot struct {
	ScenarioName string      `json:"scenario_name"`
	Trace        []TraceLine `json:"trace"`
}

// TraceLine is one trace event in canonical form.
type TraceLine struct {
	Type          string  `json:"type"`
	RequestID     string  `json:"request_id"`
	Target        string  `json:"target,omitempty"`
	Block         *uint64 `json:"block,omitempty"`
	TriggerSample *uint64 `json:"trigger_sample,omitempty"`
	LateDelta     string  `json:"late_delta,omitempty"`
}

// Snapshot converts a run result to its canonical form.
func Snapshot(res *scenario.Result) TraceSnapshot {
	snap := TraceSnapshot{
		ScenarioName: res.Scenario.Name,
		Trace:        make([]TraceLine, 0, len(res.Trace)),
	}
	for _, ev := range res.Trace {
		line := TraceLine{
			Type:      ev.Type,
			RequestID: ev.RequestID,
			Target:    ev.Target,
		}
		if ev.Type != "submitted" {
			block := ev.Block
			line.Block = &block
		}
		if ev.Type == "emitted" {
			sample := ev.TriggerSample
			line.TriggerSample = &sample
			line.LateDelta = fmt.Sprintf("%.9f", ev.LateDelta)
		}
		snap.Trace = append(snap.Trace, line)
	}
	return snap
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *scenario.Scenario) error {
	t.Helper()

	res, err := scenario.Run(s)
	if err != nil {
		return err
	}

	traceJSON, err := json.MarshalIndent(Snapshot(res), "", "  ")
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, traceJSON)
	return nil
}
