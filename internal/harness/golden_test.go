package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strobelab/strobe/internal/scenario"
)

func u64(v uint64) *uint64   { return &v }
func f64(v float64) *float64 { return &v }

func basicEmitScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Name: "basic-emit",
		Rate: 1000,
		Steps: []scenario.Step{
			{Block: &scenario.BlockStep{Count: 1000, Marker: &scenario.Marker{Time: 0}}},
			{Submit: &scenario.Submit{Sample: u64(1500)}},
			{Submit: &scenario.Submit{Time: f64(2.5)}},
			{Block: &scenario.BlockStep{Count: 1000}},
			{Block: &scenario.BlockStep{Count: 1000}},
		},
	}
}

func dropLateScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Name:     "drop-late",
		Rate:     1000,
		DropLate: true,
		Steps: []scenario.Step{
			{Block: &scenario.BlockStep{Count: 1000, Marker: &scenario.Marker{Time: 0}}},
			{Submit: &scenario.Submit{Sample: u64(100)}},
			{Submit: &scenario.Submit{Sample: u64(1500)}},
			{Block: &scenario.BlockStep{Count: 1000}},
		},
	}
}

func TestGolden_BasicEmit(t *testing.T) {
	require.NoError(t, RunWithGolden(t, basicEmitScenario()))
}

func TestGolden_DropLate(t *testing.T) {
	require.NoError(t, RunWithGolden(t, dropLateScenario()))
}

func TestSnapshot_Shape(t *testing.T) {
	res, err := scenario.Run(basicEmitScenario())
	require.NoError(t, err)

	snap := Snapshot(res)
	assert.Equal(t, "basic-emit", snap.ScenarioName)
	require.Len(t, snap.Trace, 4)

	assert.Equal(t, "submitted", snap.Trace[0].Type)
	assert.Nil(t, snap.Trace[0].Block)
	assert.Empty(t, snap.Trace[0].LateDelta)

	emitted := snap.Trace[2]
	assert.Equal(t, "emitted", emitted.Type)
	require.NotNil(t, emitted.Block)
	assert.Equal(t, uint64(1000), *emitted.Block)
	require.NotNil(t, emitted.TriggerSample)
	assert.Equal(t, uint64(1500), *emitted.TriggerSample)
	assert.Equal(t, "0.000000000", emitted.LateDelta)
}

func TestSnapshot_DeterministicAcrossRuns(t *testing.T) {
	a, err := scenario.Run(dropLateScenario())
	require.NoError(t, err)
	b, err := scenario.Run(dropLateScenario())
	require.NoError(t, err)
	assert.Equal(t, Snapshot(a), Snapshot(b))
}
