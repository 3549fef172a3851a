package clf

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rotisserie/eris"

	"github.com/sells-group/microclimate-qa/internal/fetcher"
	"github.com/sells-group/microclimate-qa/internal/model"
)

// WriteOptions configures table output.
type WriteOptions struct {
	// Flags adds <channel>_range_flag, <channel>_jump_flag and fault_flag
	// columns when set.
	Flags *model.FlagSet
}

// Write emits s as CSV: datetime in RFC 3339 UTC, then the present
// channels, optional flag columns and an OOS column when the series has an
// out-of-soil mask. Missing values are written as empty cells.
func Write(w io.Writer, s *model.Series, opts WriteOptions) error {
	channels := s.Channels()
	header := []string{"datetime"}
	for _, c := range channels {
		header = append(header, string(c))
	}
	var flagged []model.Channel
	if opts.Flags != nil {
		for _, c := range channels {
			if opts.Flags.Range[c] != nil || opts.Flags.Jump[c] != nil {
				flagged = append(flagged, c)
				header = append(header, string(c)+"_range_flag", string(c)+"_jump_flag")
			}
		}
		header = append(header, "fault_flag")
	}
	if s.OutOfSoil != nil {
		header = append(header, "OOS")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "clf: write header")
	}
	row := make([]string, 0, len(header))
	for i, t := range s.Times {
		row = append(row[:0], t.UTC().Format(time.RFC3339))
		for _, c := range channels {
			v := s.Columns[c][i]
			if model.IsMissing(v) {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if opts.Flags != nil {
			for _, c := range flagged {
				row = append(row, bit(opts.Flags.Range[c], i), bit(opts.Flags.Jump[c], i))
			}
			row = append(row, bit(opts.Flags.Fault, i))
		}
		if s.OutOfSoil != nil {
			row = append(row, bit(s.OutOfSoil, i))
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "clf: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "clf: flush")
}

// WriteFile writes s to path, compressing with gzip or zstd when the path
// ends in .gz or .zst. The file is closed on every path.
func WriteFile(path string, s *model.Series, opts WriteOptions) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "clf: create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "clf: close %s", path)
		}
	}()

	var w io.WriteCloser
	switch fetcher.DetectCompression(path) {
	case fetcher.CompressionGzip:
		w = gzip.NewWriter(f)
	case fetcher.CompressionZstd:
		if w, err = zstd.NewWriter(f); err != nil {
			return eris.Wrap(err, "clf: zstd writer")
		}
	default:
		return Write(f, s, opts)
	}

	if err := Write(w, s, opts); err != nil {
		w.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(w.Close(), "clf: finish %s", path)
}

func bit(flags []bool, i int) string {
	if i < len(flags) && flags[i] {
		return "1"
	}
	return "0"
}
