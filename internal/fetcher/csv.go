package fetcher

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// Record is one table row with its 1-based line (or sheet row) number.
type Record struct {
	Line   int
	Fields []string
}

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter rune // 0 sniffs the delimiter from the first line
	Comment   rune // comment character (0 = none)
	TrimSpace bool
}

// StreamCSV reads a delimited table and sends every record, header
// included, to a channel. Errors are sent on the error channel. Both
// channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan Record, <-chan error) {
	rowCh := make(chan Record, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		br := bufio.NewReader(r)
		delim := opts.Delimiter
		if delim == 0 {
			peek, _ := br.Peek(4096)
			delim = SniffDelimiter(firstLine(string(peek)))
		}

		reader := csv.NewReader(br)
		reader.Comma = delim
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1 // logger exports pad or truncate rows

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			fields, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}
			line, _ := reader.FieldPos(0)

			if opts.TrimSpace {
				for i, field := range fields {
					fields[i] = strings.TrimSpace(field)
				}
			}

			select {
			case rowCh <- Record{Line: line, Fields: fields}:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// SniffDelimiter picks the most frequent of ',', ';', tab and '|' in a
// header line, defaulting to ','.
func SniffDelimiter(header string) rune {
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(header, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
