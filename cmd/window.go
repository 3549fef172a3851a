package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/microclimate-qa/internal/clf"
	"github.com/sells-group/microclimate-qa/internal/deploy"
	"github.com/sells-group/microclimate-qa/internal/model"
)

var (
	windowDirection string
	windowSlice     string
	windowOut       string
)

// windowResult is printed for every detection. Window is null when the data
// could not support a cutoff.
type windowResult struct {
	FileID string                  `json:"file_id"`
	Window *model.DeploymentWindow `json:"window"`
	Reason string                  `json:"reason,omitempty"`
	Rows   int                     `json:"rows_written,omitempty"`
}

var windowCmd = &cobra.Command{
	Use:   "window <file>",
	Short: "Detect the deployment window of a logger series",
	Long: "Finds the day a logger was placed in the field (or, with --direction end, taken out) " +
		"from the air temperature swing, confirmed by the soil channel when present. " +
		"With --out the series is sliced to the deployment and written.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, ok := deploy.ParseDirection(windowDirection)
		if !ok {
			return eris.Errorf("invalid --direction %q (start, end)", windowDirection)
		}
		mode, ok := deploy.ParseSliceMode(windowSlice)
		if !ok {
			return eris.Errorf("invalid --slice %q (from, after)", windowSlice)
		}

		det, err := initDetector()
		if err != nil {
			return err
		}

		tbl, err := clf.Load(cmd.Context(), args[0], readOptions(cfg.Input))
		if err != nil {
			return err
		}

		res := windowResult{FileID: tbl.Series.ID}
		w, err := det.Detect(tbl.Series, dir)
		switch {
		case deploy.Unresolved(err):
			zap.L().Info("no deployment window", zap.String("file", tbl.Series.ID), zap.Error(err))
			res.Reason = err.Error()
			return printJSON(os.Stdout, res)
		case err != nil:
			return err
		}
		res.Window = w

		if windowOut != "" {
			sliced := deploy.Slice(tbl.Series, w, mode)
			if err := clf.WriteFile(windowOut, sliced, clf.WriteOptions{}); err != nil {
				return err
			}
			res.Rows = sliced.Len()
		}
		return printJSON(os.Stdout, res)
	},
}

func init() {
	windowCmd.Flags().StringVar(&windowDirection, "direction", "start", "boundary to find: start or end")
	windowCmd.Flags().StringVar(&windowSlice, "slice", "from", "keep the cutoff day (from) or drop it (after)")
	windowCmd.Flags().StringVarP(&windowOut, "out", "o", "", "write the sliced series to this path")
	windowCmd.Flags().Int("day-in-streak", 0, "streak day used as cutoff (overrides deploy.day_in_streak)")
	rootCmd.AddCommand(windowCmd)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
