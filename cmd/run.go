package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/microclimate-qa/internal/batch"
	"github.com/sells-group/microclimate-qa/internal/export"
	"github.com/sells-group/microclimate-qa/internal/model"
)

var (
	runOutDir      string
	runReportDir   string
	runExt         string
	runConcurrency int
)

var runCmd = &cobra.Command{
	Use:   "run <file|dir>...",
	Short: "Clean logger series and write QA reports",
	Long: "Runs the QA pipeline over every table file given (directories are scanned one level deep). " +
		"Cleaned series are written to --out, reports to --reports. Failing files are reported and skipped.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		jobs, err := batch.Discover(args)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			return eris.New("no table files found")
		}

		p, err := initPipeline()
		if err != nil {
			return err
		}

		concurrency := runConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentSeries
		}
		opts := []batch.Option{
			batch.WithConcurrency(concurrency),
			batch.WithReadOptions(readOptions(cfg.Input)),
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
			opts = append(opts, batch.WithStore(st))
		}

		if runOutDir != "" {
			sink, err := batch.DirSink(runOutDir, runExt)
			if err != nil {
				return err
			}
			opts = append(opts, batch.WithSink(sink))
		}

		sum := batch.New(p, opts...).Run(ctx, jobs)

		reportDir := runReportDir
		if reportDir == "" {
			reportDir = runOutDir
		}
		if reportDir != "" && len(sum.Reports) > 0 {
			if err := export.WriteAll(reportDir, sum.Reports); err != nil {
				return err
			}
			zap.L().Info("reports written", zap.String("dir", reportDir))
		}

		formatReports(os.Stdout, sum.Reports)
		formatFailures(os.Stderr, sum.Failures)

		if sum.Failed > 0 {
			return eris.Errorf("%d of %d series failed", sum.Failed, len(jobs))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOutDir, "out", "o", "", "directory for cleaned series")
	runCmd.Flags().StringVar(&runReportDir, "reports", "", "directory for QA reports (default --out)")
	runCmd.Flags().StringVar(&runExt, "ext", ".csv", "cleaned series extension: .csv, .csv.gz or .csv.zst")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "series processed at once (default from config)")
	rootCmd.AddCommand(runCmd)
}

// formatReports writes one line of counters per report.
func formatReports(out io.Writer, reports []model.QAReport) {
	if len(reports) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FILE\tTYPE\tROWS\tINSERTED\tLARGE_GAPS\tDUPES\tRANGE\tJUMP\tINCOMPLETE\tFILLED")
	for _, r := range reports {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.FileID,
			r.LoggerType,
			r.Rows,
			r.MissingTimestampsInserted,
			r.LargeGapCount(),
			r.DuplicateRemoved,
			r.RangeViolations,
			r.JumpViolations,
			r.IncompleteRows,
			r.GapsFilled,
		)
	}
	_ = w.Flush()
}

// formatFailures lists failed files.
func formatFailures(out io.Writer, failures []batch.Failure) {
	for _, f := range failures {
		_, _ = fmt.Fprintf(out, "FAILED %s: %s\n", f.FileID, f.Error)
	}
}
