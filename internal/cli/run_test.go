package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strobelab/strobe/internal/journal"
)

// basicScenarioYAML anchors true time 0 at sample 0 and submits one
// sample-form and one time-form trigger, both ahead of the stream.
const basicScenarioYAML = `name: cli-basic
rate: 1000
steps:
  - block:
      count: 1000
      marker:
        time: 0.0
  - submit:
      sample: 1500
  - submit:
      time: 2.5
  - block:
      count: 1000
  - block:
      count: 1000
`

func writeScenario(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestRunMissingScenarioFile(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/scenario.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load scenario")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunInvalidScenario(t *testing.T) {
	path := writeScenario(t, "name: broken\nrate: -5\n")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate must be positive")
}

func TestRunTextOutput(t *testing.T) {
	path := writeScenario(t, basicScenarioYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "Scenario: cli-basic")
	assert.Contains(t, out, "SUBMIT req-1 sample:1500")
	assert.Contains(t, out, "SUBMIT req-2 time:2.500000000")
	assert.Contains(t, out, "EMIT   req-1 sample=1500 late=0.000000000 (block 1000)")
	assert.Contains(t, out, "EMIT   req-2 sample=2500 late=0.000000000 (block 2000)")
	assert.Contains(t, out, "Submitted: 2  Emitted: 2  Dropped: 0")
}

func TestRunJSONOutput(t *testing.T) {
	path := writeScenario(t, basicScenarioYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "cli-basic", resp.Data.Scenario)
	require.Len(t, resp.Data.Events, 4)

	emitted := resp.Data.Events[2]
	assert.Equal(t, "emitted", emitted.Type)
	assert.Equal(t, "req-1", emitted.RequestID)
	require.NotNil(t, emitted.TriggerSample)
	assert.Equal(t, uint64(1500), *emitted.TriggerSample)
	assert.Equal(t, "0.000000000", emitted.LateDelta)
	assert.Equal(t, RunStats{Submitted: 2, Emitted: 2}, resp.Data.Stats)
}

func TestRunWithConfigDefaults(t *testing.T) {
	// Scenario omits the rate; the config file supplies it.
	scenarioPath := writeScenario(t, `name: cli-defaulted
steps:
  - block:
      count: 1000
      marker:
        time: 0.0
  - submit:
      sample: 1500
  - block:
      count: 1000
`)
	configPath := filepath.Join(t.TempDir(), "strobe.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("rate: 1000\n"), 0o644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenarioPath, "--config", configPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "EMIT   req-1 sample=1500")
}

func TestRunWithJournal(t *testing.T) {
	path := writeScenario(t, basicScenarioYAML)
	dbPath := filepath.Join(t.TempDir(), "strobe.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "--journal", dbPath})

	require.NoError(t, cmd.Execute())

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()

	records, err := j.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "req-1", records[0].RequestID)
	assert.Equal(t, journal.DispositionEmitted, records[0].Disposition)
	assert.Equal(t, uint64(1500), records[0].TriggerSample)
	assert.Equal(t, "req-2", records[1].RequestID)
	assert.Equal(t, uint64(2500), records[1].TriggerSample)
}
