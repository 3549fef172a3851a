package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/microclimate-qa/internal/model"
)

// Summary renders a short Markdown description of one report.
func Summary(r model.QAReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s (%s)\n\n", r.FileID, r.LoggerType)
	fmt.Fprintf(&b, "| check | count |\n|---|---:|\n")
	for _, line := range []struct {
		name string
		n    int
	}{
		{"rows", r.Rows},
		{"parse errors", r.ParseErrors},
		{"duplicates removed", r.DuplicateRemoved},
		{"timestamps inserted", r.MissingTimestampsInserted},
		{"off-grid removed", r.NonGridRemoved},
		{"range violations", r.RangeViolations},
		{"jump violations", r.JumpViolations},
		{"fault rows", r.FaultRows},
		{"incomplete rows", r.IncompleteRows},
		{"values filled", r.GapsFilled},
	} {
		fmt.Fprintf(&b, "| %s | %d |\n", line.name, line.n)
	}

	if len(r.LargeGaps) > 0 {
		fmt.Fprintf(&b, "\n### Large gaps\n\n")
		for _, g := range r.LargeGaps {
			fmt.Fprintf(&b, "- %s to %s: %d missing intervals\n",
				g.Start.UTC().Format(time.RFC3339), g.End.UTC().Format(time.RFC3339), g.MissingIntervals)
		}
	}
	return b.String()
}
