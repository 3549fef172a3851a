package batch

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/microclimate-qa/internal/clf"
	"github.com/sells-group/microclimate-qa/internal/fetcher"
)

// DirSink writes each cleaned series to dir as <file_id><ext>, with flag
// columns. ext selects compression, e.g. ".csv" or ".csv.gz".
func DirSink(dir, ext string) (Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "batch: create output dir %s", dir)
	}
	if ext == "" {
		ext = ".csv"
	}
	return func(_ context.Context, out Output) error {
		path := filepath.Join(dir, out.Result.Series.ID+ext)
		return clf.WriteFile(path, out.Result.Series, clf.WriteOptions{Flags: out.Result.Flags})
	}, nil
}

// Discover expands files and directories into jobs. Directories are scanned
// one level deep for table files; results are sorted by path.
func Discover(paths []string) ([]Job, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, eris.Wrapf(err, "batch: stat %s", p)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, eris.Wrapf(err, "batch: read dir %s", p)
		}
		for _, e := range entries {
			if e.IsDir() || !fetcher.IsTable(e.Name()) {
				continue
			}
			files = append(files, filepath.Join(p, e.Name()))
		}
	}
	sort.Strings(files)

	jobs := make([]Job, len(files))
	for i, f := range files {
		jobs[i] = Job{Path: f}
	}
	return jobs, nil
}
