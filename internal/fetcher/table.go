package fetcher

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// TableOptions configures ReadTable.
type TableOptions struct {
	Charset string
	CSV     CSVOptions
	XLSX    XLSXOptions
}

// IsTable reports whether path has a recognized table extension.
func IsTable(path string) bool {
	lower := strings.ToLower(TrimCompression(path))
	return strings.HasSuffix(lower, ".csv") || strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".xlsx")
}

// ReadTable streams the records of a .csv, .txt or .xlsx file, optionally
// gzip or zstd compressed for the text formats. The file is closed when the
// record channel is drained or the context ends.
func ReadTable(ctx context.Context, path string, opts TableOptions) (<-chan Record, <-chan error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return StreamXLSX(ctx, path, opts.XLSX)
	}

	rc, err := Open(path, opts.Charset)
	if err != nil {
		rowCh := make(chan Record)
		errCh := make(chan error, 1)
		errCh <- err
		close(rowCh)
		close(errCh)
		return rowCh, errCh
	}

	rowCh, csvErrCh := StreamCSV(ctx, rc, opts.CSV)
	errCh := make(chan error, 2)
	go func() {
		defer close(errCh)
		for err := range csvErrCh {
			errCh <- err
		}
		if err := rc.Close(); err != nil {
			errCh <- eris.Wrapf(err, "fetcher: close %s", path)
		}
	}()
	return rowCh, errCh
}

// Collect drains a record stream into memory.
func Collect(rowCh <-chan Record, errCh <-chan error) ([]Record, error) {
	var rows []Record
	for row := range rowCh {
		rows = append(rows, row)
	}
	var first error
	for err := range errCh {
		if err != nil && first == nil {
			first = err
		}
	}
	return rows, first
}
