package export

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/microclimate-qa/internal/model"
)

// File names written by WriteAll.
const (
	ReportCSVName = "qa_report.csv"
	GapsCSVName   = "large_gaps.csv"
	WorkbookName  = "qa_report.xlsx"
	SummaryMDName = "qa_summary.md"
)

// WriteAll writes the report CSV, the large-gap CSV, the workbook and the
// Markdown summaries into dir.
func WriteAll(dir string, reports []model.QAReport) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create %s", dir)
	}
	writers := map[string]func(io.Writer) error{
		ReportCSVName: func(w io.Writer) error { return WriteReportCSV(w, reports) },
		GapsCSVName:   func(w io.Writer) error { return WriteGapsCSV(w, reports) },
		WorkbookName:  func(w io.Writer) error { return WriteXLSX(w, reports) },
		SummaryMDName: func(w io.Writer) error {
			for _, r := range reports {
				if _, err := io.WriteString(w, Summary(r)+"\n"); err != nil {
					return err
				}
			}
			return nil
		},
	}
	for name, write := range writers {
		if err := writeFile(filepath.Join(dir, name), write); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "export: close %s", path)
		}
	}()
	if err := write(f); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}
