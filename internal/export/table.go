// Package export writes QA reports as CSV tables, an XLSX workbook and
// Markdown summaries.
package export

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/microclimate-qa/internal/model"
)

// ReportRow is one line of the QA report table.
type ReportRow struct {
	FileID                    string `csv:"file_id"`
	LoggerType                string `csv:"logger_type"`
	MissingTimestampsInserted int    `csv:"missing_timestamps_inserted"`
	LargeGapCount             int    `csv:"large_gap_count"`
	NonGridRemoved            int    `csv:"non_grid_removed"`
	RangeViolations           int    `csv:"range_violations"`
	JumpViolations            int    `csv:"jump_violations"`
	IncompleteRows            int    `csv:"incomplete_rows"`
	DuplicateRemoved          int    `csv:"duplicate_removed"`
	GapsFilled                int    `csv:"gaps_filled"`
	ParseErrors               int    `csv:"parse_errors"`
}

// GapRow is one line of the long-format large-gap table.
type GapRow struct {
	FileID           string    `csv:"file_id"`
	Start            time.Time `csv:"start"`
	End              time.Time `csv:"end"`
	MissingIntervals int       `csv:"missing_intervals"`
}

// ReportRows flattens reports into table rows, in input order.
func ReportRows(reports []model.QAReport) []ReportRow {
	rows := make([]ReportRow, len(reports))
	for i, r := range reports {
		rows[i] = ReportRow{
			FileID:                    r.FileID,
			LoggerType:                string(r.LoggerType),
			MissingTimestampsInserted: r.MissingTimestampsInserted,
			LargeGapCount:             r.LargeGapCount(),
			NonGridRemoved:            r.NonGridRemoved,
			RangeViolations:           r.RangeViolations,
			JumpViolations:            r.JumpViolations,
			IncompleteRows:            r.IncompleteRows,
			DuplicateRemoved:          r.DuplicateRemoved,
			GapsFilled:                r.GapsFilled,
			ParseErrors:               r.ParseErrors,
		}
	}
	return rows
}

// GapRows lists every large gap of every report.
func GapRows(reports []model.QAReport) []GapRow {
	var rows []GapRow
	for _, r := range reports {
		for _, g := range r.LargeGaps {
			rows = append(rows, GapRow{
				FileID:           r.FileID,
				Start:            g.Start.UTC(),
				End:              g.End.UTC(),
				MissingIntervals: g.MissingIntervals,
			})
		}
	}
	return rows
}

// WriteReportCSV writes the QA report table.
func WriteReportCSV(w io.Writer, reports []model.QAReport) error {
	return encode(w, ReportRows(reports), ReportRow{})
}

// WriteGapsCSV writes the large-gap table. A header is written even when
// there are no gaps.
func WriteGapsCSV(w io.Writer, reports []model.QAReport) error {
	return encode(w, GapRows(reports), GapRow{})
}

func encode[T any](w io.Writer, rows []T, zero T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(rows) == 0 {
		if err := enc.EncodeHeader(zero); err != nil {
			return eris.Wrap(err, "export: encode header")
		}
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return eris.Wrap(err, "export: encode row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush")
}
