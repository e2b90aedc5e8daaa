package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/strobelab/strobe/internal/config"
	"github.com/strobelab/strobe/internal/journal"
	"github.com/strobelab/strobe/internal/scenario"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config  string // optional path to a defaults file
	Journal string // optional path to a SQLite journal
}

// RunEvent is one trace line in the run output.
type RunEvent struct {
	Type          string  `json:"type"`
	RequestID     string  `json:"request_id"`
	Target        string  `json:"target,omitempty"`
	Block         *uint64 `json:"block,omitempty"`
	TriggerSample *uint64 `json:"trigger_sample,omitempty"`
	LateDelta     string  `json:"late_delta,omitempty"`
}

// RunResult holds the complete run output.
type RunResult struct {
	Scenario string     `json:"scenario"`
	Events   []RunEvent `json:"events"`
	Stats    RunStats   `json:"stats"`
}

// RunStats holds summary statistics for the run.
type RunStats struct {
	Submitted int `json:"submitted"`
	Emitted   int `json:"emitted"`
	Dropped   int `json:"dropped"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and print the trigger trace",
		Long: `Run a scenario file against a fresh emitter.

The scenario declares the sample rate, loop gain and drop policy, then an
ordered list of trigger submissions and sample blocks. Runs are
deterministic: the fake wall clock and sequential request IDs make the
same file always produce the same trace.

Example:
  strobe run ./scenarios/basic.yaml
  strobe run ./scenarios/basic.yaml --journal /tmp/strobe.db --verbose
  strobe run ./scenarios/basic.yaml --config ./strobe.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to YAML defaults for rate, loop gain and drop policy (optional)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal for terminal dispositions (optional)")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		if cfg, err = config.Load(opts.Config); err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}

	// Configure logging based on the verbose flag and the config file
	logLevel := slog.LevelInfo
	if opts.Verbose || cfg.Debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	slog.Debug("loading scenario", "path", path)
	sc, err := scenario.LoadWith(path, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	res, err := scenario.Run(sc)
	if err != nil {
		return WrapExitError(ExitFailure, "scenario run failed", err)
	}
	slog.Debug("scenario finished", "scenario", sc.Name, "events", len(res.Trace))

	journalPath := opts.Journal
	if journalPath == "" {
		journalPath = cfg.Journal
	}
	if journalPath != "" {
		if err := journalMatches(journalPath, res); err != nil {
			return WrapExitError(ExitFailure, "failed to journal dispositions", err)
		}
	}

	result := buildRunResult(res)
	if opts.Format == "json" {
		return outputJSON(cmd, result)
	}
	return outputRunText(cmd, result)
}

// journalMatches records every terminal disposition from the run.
func journalMatches(path string, res *scenario.Result) error {
	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := j.Close(); closeErr != nil {
			slog.Error("error closing journal", "error", closeErr)
		}
	}()

	for _, match := range res.Matches {
		if err := j.Record(match); err != nil {
			return err
		}
	}
	return nil
}

func buildRunResult(res *scenario.Result) RunResult {
	out := RunResult{Scenario: res.Scenario.Name}
	for _, ev := range res.Trace {
		line := RunEvent{
			Type:      ev.Type,
			RequestID: ev.RequestID,
			Target:    ev.Target,
		}
		switch ev.Type {
		case "emitted":
			block, sample := ev.Block, ev.TriggerSample
			line.Block = &block
			line.TriggerSample = &sample
			line.LateDelta = fmt.Sprintf("%.9f", ev.LateDelta)
			out.Stats.Emitted++
		case "dropped":
			block := ev.Block
			line.Block = &block
			out.Stats.Dropped++
		default:
			out.Stats.Submitted++
		}
		out.Events = append(out.Events, line)
	}
	return out
}

func outputRunText(cmd *cobra.Command, result RunResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Scenario: %s\n", result.Scenario)
	fmt.Fprintln(w)
	for _, ev := range result.Events {
		switch ev.Type {
		case "submitted":
			fmt.Fprintf(w, "  SUBMIT %s %s\n", ev.RequestID, ev.Target)
		case "emitted":
			fmt.Fprintf(w, "  EMIT   %s sample=%d late=%s (block %d)\n",
				ev.RequestID, *ev.TriggerSample, ev.LateDelta, *ev.Block)
		case "dropped":
			fmt.Fprintf(w, "  DROP   %s (block %d)\n", ev.RequestID, *ev.Block)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Submitted: %d  Emitted: %d  Dropped: %d\n",
		result.Stats.Submitted, result.Stats.Emitted, result.Stats.Dropped)

	return nil
}
