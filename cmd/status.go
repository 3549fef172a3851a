package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/microclimate-qa/internal/monitoring"
)

var (
	statusLookback int
	statusJSON     bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize recent QA runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := requireStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := monitoring.NewCollector(st).Collect(ctx, statusLookback)
		if err != nil {
			return err
		}
		if statusJSON {
			return printJSON(os.Stdout, snap)
		}
		formatSnapshot(os.Stdout, snap)
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLookback, "lookback-hours", 24, "window of runs to summarize")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(statusCmd)
}

// formatSnapshot writes aggregate run stats to w.
func formatSnapshot(out io.Writer, s *monitoring.MetricsSnapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Runs (last %dh):\t%d\n", s.LookbackHours, s.RunsTotal)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.RunsComplete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.RunsFailed)
	_, _ = fmt.Fprintf(w, "Queued/running:\t%d\n", s.RunsQueued+s.RunsRunning)
	_, _ = fmt.Fprintf(w, "Failure rate:\t%.1f%%\n", s.FailRate*100)
	_, _ = fmt.Fprintf(w, "Avg range violations:\t%.1f\n", s.AvgRangeViolations)
	_, _ = fmt.Fprintf(w, "Avg jump violations:\t%.1f\n", s.AvgJumpViolations)
	_, _ = fmt.Fprintf(w, "Avg gaps filled:\t%.1f\n", s.AvgGapsFilled)
	_, _ = fmt.Fprintf(w, "Large gaps:\t%d\n", s.LargeGaps)
	_ = w.Flush()
}
