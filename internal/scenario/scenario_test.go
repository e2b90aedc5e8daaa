package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strobelab/strobe/internal/config"
)

func u64(v uint64) *uint64   { return &v }
func f64(v float64) *float64 { return &v }

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Scenario
		wantErr string
	}{
		{
			name:    "zero rate",
			s:       Scenario{Name: "x"},
			wantErr: "rate must be positive",
		},
		{
			name: "empty step",
			s: Scenario{Name: "x", Rate: 1000, Steps: []Step{{}}},
			wantErr: "neither submit nor block",
		},
		{
			name: "two target forms",
			s: Scenario{Name: "x", Rate: 1000, Steps: []Step{
				{Submit: &Submit{Sample: u64(1), Time: f64(1)}},
			}},
			wantErr: "exactly one target form",
		},
		{
			name: "empty block",
			s: Scenario{Name: "x", Rate: 1000, Steps: []Step{
				{Block: &BlockStep{Count: 0}},
			}},
			wantErr: "must have samples",
		},
		{
			name: "valid",
			s: Scenario{Name: "x", Rate: 1000, Steps: []Step{
				{Submit: &Submit{Sample: u64(1)}},
				{Block: &BlockStep{Count: 10}},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: smoke
rate: 1000
drop_late: true
steps:
  - block: {count: 1000, marker: {time: 0.0}}
  - submit: {sample: 1500}
  - submit: {pair: [1, 0.25]}
  - block: {count: 1000}
`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "smoke", s.Name)
	assert.True(t, s.DropLate)
	require.Len(t, s.Steps, 4)
	require.NotNil(t, s.Steps[2].Submit.Pair)
	assert.Equal(t, [2]float64{1, 0.25}, *s.Steps[2].Submit.Pair)
}

func TestLoadWith_ConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: defaulted
steps:
  - block: {count: 1000, marker: {time: 0.0}}
`), 0o644))

	cfg := config.Default()
	cfg.Rate = 48000
	cfg.LoopGain = 0.01
	cfg.DropLate = true

	s, err := LoadWith(path, cfg)
	require.NoError(t, err)
	assert.Equal(t, 48000.0, s.Rate)
	require.NotNil(t, s.LoopGain)
	assert.Equal(t, 0.01, *s.LoopGain)
	assert.True(t, s.DropLate)
}

func TestLoadWith_ExplicitZeroGainKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: frozen-gain
rate: 1000
loop_gain: 0
steps:
  - block: {count: 1000, marker: {time: 0.0}}
`), 0o644))

	cfg := config.Default()
	cfg.LoopGain = 0.01

	// Zero is a valid gain (drift tracking disabled), not "unset": the
	// config default must not overwrite it.
	s, err := LoadWith(path, cfg)
	require.NoError(t, err)
	require.NotNil(t, s.LoopGain)
	assert.Zero(t, *s.LoopGain)
}

func TestRun_EmitsInOrder(t *testing.T) {
	s := &Scenario{
		Name: "order",
		Rate: 1000,
		Steps: []Step{
			{Block: &BlockStep{Count: 1000, Marker: &Marker{Time: 0}}},
			{Submit: &Submit{Sample: u64(1800)}},
			{Submit: &Submit{Sample: u64(1200)}},
			{Submit: &Submit{Time: f64(1.5)}},
			{Block: &BlockStep{Count: 1000}},
		},
	}
	res, err := Run(s)
	require.NoError(t, err)

	var emitted []uint64
	for _, ev := range res.Trace {
		if ev.Type == "emitted" {
			emitted = append(emitted, ev.TriggerSample)
		}
	}
	assert.Equal(t, []uint64{1200, 1500, 1800}, emitted)
}

func TestRun_GapBlock(t *testing.T) {
	s := &Scenario{
		Name: "gap",
		Rate: 1000,
		Steps: []Step{
			{Block: &BlockStep{Count: 1000, Marker: &Marker{Time: 0}}},
			// Explicit start far ahead: a stream gap with a fresh marker.
			{Block: &BlockStep{Start: u64(50_000), Count: 1000, Marker: &Marker{Time: 100}}},
			{Submit: &Submit{Sample: u64(50_500)}},
			{Block: &BlockStep{Count: 1000}},
		},
	}
	res, err := Run(s)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, uint64(50_500), res.Matches[0].Event.TriggerSample)
}

func TestRun_DropLate(t *testing.T) {
	s := &Scenario{
		Name:     "droplate",
		Rate:     1000,
		DropLate: true,
		Steps: []Step{
			{Block: &BlockStep{Count: 1000, Marker: &Marker{Time: 0}}},
			{Submit: &Submit{Sample: u64(100)}},
			{Block: &BlockStep{Count: 1000}},
		},
	}
	res, err := Run(s)
	require.NoError(t, err)
	require.Len(t, res.Trace, 2)
	assert.Equal(t, "submitted", res.Trace[0].Type)
	assert.Equal(t, "dropped", res.Trace[1].Type)
}

func TestRun_DeterministicAcrossRuns(t *testing.T) {
	s := &Scenario{
		Name:      "det",
		Rate:      1000,
		WallClock: 500,
		Steps: []Step{
			{Block: &BlockStep{Count: 1000}}, // wall-seeded anchor
			{Submit: &Submit{Sample: u64(1500)}},
			{Block: &BlockStep{Count: 1000}},
		},
	}
	a, err := Run(s)
	require.NoError(t, err)
	b, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, a.Trace, b.Trace)
}
