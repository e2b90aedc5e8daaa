package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/strobelab/strobe/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
}

// TraceRecord is one journaled disposition in the trace output.
type TraceRecord struct {
	Seq           int64   `json:"seq"`
	RequestID     string  `json:"request_id"`
	Target        string  `json:"target"`
	Disposition   string  `json:"disposition"`
	TriggerSample *uint64 `json:"trigger_sample,omitempty"`
	LateDelta     string  `json:"late_delta,omitempty"`
	RecordedAt    string  `json:"recorded_at"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Records []TraceRecord `json:"records"`
	Stats   TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Total   int `json:"total"`
	Emitted int `json:"emitted"`
	Dropped int `json:"dropped"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Dump journaled trigger dispositions",
		Long: `Dump the trigger journal written by strobe run --journal.

Each record is one terminal disposition: the request ID, the target as
submitted, whether it was emitted or dropped, and for emissions the
trigger sample and lateness.

Examples:
  strobe trace --db /tmp/strobe.db
  strobe trace --db /tmp/strobe.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	records, err := j.List()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := TraceResult{Records: []TraceRecord{}}
	for _, rec := range records {
		tr := TraceRecord{
			Seq:         rec.Seq,
			RequestID:   rec.RequestID,
			Target:      rec.TargetJSON,
			Disposition: rec.Disposition,
			RecordedAt:  rec.RecordedAt.Format(time.RFC3339Nano),
		}
		if rec.Disposition == journal.DispositionEmitted {
			sample := rec.TriggerSample
			tr.TriggerSample = &sample
			tr.LateDelta = fmt.Sprintf("%.9f", rec.LateDelta)
			result.Stats.Emitted++
		} else {
			result.Stats.Dropped++
		}
		result.Records = append(result.Records, tr)
	}
	result.Stats.Total = len(records)

	if opts.Format == "json" {
		return outputJSON(cmd, result)
	}

	return outputTraceText(cmd, result)
}

func outputTraceText(cmd *cobra.Command, result TraceResult) error {
	w := cmd.OutOrStdout()

	if len(result.Records) == 0 {
		fmt.Fprintln(w, "No records found")
		return nil
	}

	for _, rec := range result.Records {
		switch rec.Disposition {
		case journal.DispositionEmitted:
			fmt.Fprintf(w, "  [%d] EMIT %s target=%s sample=%d late=%s at %s\n",
				rec.Seq, rec.RequestID, rec.Target, *rec.TriggerSample, rec.LateDelta, rec.RecordedAt)
		default:
			fmt.Fprintf(w, "  [%d] DROP %s target=%s at %s\n",
				rec.Seq, rec.RequestID, rec.Target, rec.RecordedAt)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d  Emitted: %d  Dropped: %d\n",
		result.Stats.Total, result.Stats.Emitted, result.Stats.Dropped)

	return nil
}
