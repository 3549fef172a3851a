package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/microclimate-qa/internal/model"
)

// Sheet names of the report workbook.
const (
	SheetReport    = "qa_report"
	SheetLargeGaps = "large_gaps"
)

var (
	reportHeader = []string{
		"file_id", "logger_type", "missing_timestamps_inserted", "large_gap_count",
		"non_grid_removed", "range_violations", "jump_violations", "incomplete_rows",
		"duplicate_removed", "gaps_filled", "parse_errors",
	}
	gapHeader = []string{"file_id", "start", "end", "missing_intervals"}
)

// Workbook builds the report workbook with a qa_report and a large_gaps
// sheet.
func Workbook(reports []model.QAReport) (*xlsx.File, error) {
	f := xlsx.NewFile()

	rs, err := f.AddSheet(SheetReport)
	if err != nil {
		return nil, eris.Wrap(err, "export: add report sheet")
	}
	addStrings(rs.AddRow(), reportHeader)
	for _, r := range ReportRows(reports) {
		row := rs.AddRow()
		row.AddCell().SetString(r.FileID)
		row.AddCell().SetString(r.LoggerType)
		for _, n := range []int{
			r.MissingTimestampsInserted, r.LargeGapCount, r.NonGridRemoved,
			r.RangeViolations, r.JumpViolations, r.IncompleteRows,
			r.DuplicateRemoved, r.GapsFilled, r.ParseErrors,
		} {
			row.AddCell().SetInt(n)
		}
	}

	gs, err := f.AddSheet(SheetLargeGaps)
	if err != nil {
		return nil, eris.Wrap(err, "export: add gap sheet")
	}
	addStrings(gs.AddRow(), gapHeader)
	for _, g := range GapRows(reports) {
		row := gs.AddRow()
		row.AddCell().SetString(g.FileID)
		row.AddCell().SetDateTime(g.Start)
		row.AddCell().SetDateTime(g.End)
		row.AddCell().SetInt(g.MissingIntervals)
	}
	return f, nil
}

// WriteXLSX writes the report workbook to w.
func WriteXLSX(w io.Writer, reports []model.QAReport) error {
	f, err := Workbook(reports)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write workbook")
}

func addStrings(row *xlsx.Row, values []string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
