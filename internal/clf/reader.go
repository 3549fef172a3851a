// Package clf reads and writes logger tables in the common logger format:
// a datetime column plus the t1, t2, t3 and SMC channels.
package clf

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/microclimate-qa/internal/fetcher"
	"github.com/sells-group/microclimate-qa/internal/model"
)

// ErrNoTimestampColumn means the header has no time column.
var ErrNoTimestampColumn = eris.New("clf: no timestamp column")

// Options configures table decoding.
type Options struct {
	TimeColumn string // default "datetime"
	Table      fetcher.TableOptions
}

// Table is a decoded logger table.
type Table struct {
	Series *model.Series
	// ParseErrors counts rows with an unreadable timestamp (dropped) plus
	// cells with an unreadable value (read as missing).
	ParseErrors int
	// Ignored lists header columns that are not channels.
	Ignored []string
}

// FileID derives a series identifier from a file path by dropping the
// directory, compression and table extensions.
func FileID(path string) string {
	base := fetcher.TrimCompression(filepath.Base(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load reads a logger table from disk.
func Load(ctx context.Context, path string, opts Options) (*Table, error) {
	rowCh, errCh := fetcher.ReadTable(ctx, path, opts.Table)
	tbl, err := decode(FileID(path), rowCh, errCh, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "clf: load %s", path)
	}
	return tbl, nil
}

// Read decodes a delimited table from r.
func Read(ctx context.Context, r io.Reader, id string, opts Options) (*Table, error) {
	rowCh, errCh := fetcher.StreamCSV(ctx, r, opts.Table.CSV)
	return decode(id, rowCh, errCh, opts)
}

func decode(id string, rowCh <-chan fetcher.Record, errCh <-chan error, opts Options) (*Table, error) {
	timeName := opts.TimeColumn
	if timeName == "" {
		timeName = "datetime"
	}

	var (
		tbl     = &Table{}
		samples []model.Sample
		timeIdx = -1
		cols    map[int]model.Channel
	)
	for rec := range rowCh {
		if cols == nil {
			cols = make(map[int]model.Channel)
			seen := make(map[model.Channel]bool)
			for i, name := range rec.Fields {
				name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
				if strings.EqualFold(name, timeName) {
					timeIdx = i
					continue
				}
				// A repeated channel keeps its first column.
				if c, ok := model.ParseChannel(name); ok && !seen[c] {
					cols[i] = c
					seen[c] = true
					continue
				}
				tbl.Ignored = append(tbl.Ignored, name)
			}
			if timeIdx < 0 {
				drain(rowCh, errCh)
				return nil, eris.Wrapf(ErrNoTimestampColumn, "clf: %s: want column %q", id, timeName)
			}
			continue
		}

		if timeIdx >= len(rec.Fields) {
			tbl.ParseErrors++
			continue
		}
		ts, err := model.ParseTime(rec.Fields[timeIdx])
		if err != nil {
			tbl.ParseErrors++
			continue
		}
		smp := model.Sample{Time: ts, Values: make(map[model.Channel]float64, len(cols))}
		for i, c := range cols {
			if i >= len(rec.Fields) {
				continue
			}
			v, ok, bad := parseValue(rec.Fields[i])
			if bad {
				tbl.ParseErrors++
			}
			if ok {
				smp.Values[c] = v
			}
		}
		samples = append(samples, smp)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	if cols == nil {
		return nil, eris.Wrapf(ErrNoTimestampColumn, "clf: %s: empty table", id)
	}

	tbl.Series = model.NewSeries(id, samples)
	for _, c := range cols {
		if !tbl.Series.Has(c) {
			tbl.Series.Columns[c] = missingColumn(len(samples))
		}
	}
	if tbl.ParseErrors > 0 || len(tbl.Ignored) > 0 {
		zap.L().Debug("clf: decoded with issues",
			zap.String("file", id),
			zap.Int("parse_errors", tbl.ParseErrors),
			zap.Strings("ignored_columns", tbl.Ignored),
		)
	}
	return tbl, nil
}

// parseValue reads a cell. Blank and NA markers are missing without being
// an error; decimal commas are accepted.
func parseValue(raw string) (v float64, ok bool, bad bool) {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null", "none", "-":
		return 0, false, false
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || model.IsMissing(v) {
		return 0, false, true
	}
	return v, true, false
}

func missingColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = model.Missing
	}
	return col
}

func drain(rowCh <-chan fetcher.Record, errCh <-chan error) {
	for range rowCh { //nolint:revive // drain
	}
	for range errCh { //nolint:revive // drain
	}
}
