package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/microclimate-qa/internal/clf"
	"github.com/sells-group/microclimate-qa/internal/edit"
)

var (
	editPlan string
	editOut  string
)

var editCmd = &cobra.Command{
	Use:   "edit [file]",
	Short: "Apply manual edits to a logger series",
	Long: "Applies the operations of a YAML edit plan (null values, null spans, out-of-soil spans, " +
		"row removal, gap filling) in order. The input file may come from the plan's file key.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := edit.LoadPlan(editPlan)
		if err != nil {
			return err
		}

		input := plan.File
		if len(args) == 1 {
			input = args[0]
		}
		if input == "" {
			return eris.New("no input file: pass one or set file in the plan")
		}
		if editOut == "" {
			return eris.New("--out is required")
		}

		tbl, err := clf.Load(cmd.Context(), input, readOptions(cfg.Input))
		if err != nil {
			return err
		}

		edited, outcomes, err := edit.Apply(tbl.Series, plan, cfg.QA.GapFillLimit)
		if err != nil {
			return err
		}
		if err := clf.WriteFile(editOut, edited, clf.WriteOptions{}); err != nil {
			return err
		}

		formatOutcomes(os.Stdout, outcomes)
		return nil
	},
}

func init() {
	editCmd.Flags().StringVarP(&editPlan, "plan", "p", "", "YAML edit plan (required)")
	editCmd.Flags().StringVarP(&editOut, "out", "o", "", "path of the edited series")
	_ = editCmd.MarkFlagRequired("plan")
	rootCmd.AddCommand(editCmd)
}

// formatOutcomes writes the number of rows or values each operation touched.
func formatOutcomes(out io.Writer, outcomes []edit.Outcome) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tOP\tAFFECTED")
	for i, o := range outcomes {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\n", i+1, o.Op, o.Affected)
	}
	_ = w.Flush()
}
