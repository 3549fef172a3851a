package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/microclimate-qa/internal/config"
	"github.com/sells-group/microclimate-qa/internal/model"
)

func configFor(driver, url string) config.StoreConfig {
	return config.StoreConfig{Driver: driver, DatabaseURL: url}
}

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleReport(fileID string) *model.QAReport {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return &model.QAReport{
		FileID:                    fileID,
		LoggerType:                model.LoggerTypeMultiChannel,
		Rows:                      384,
		MissingTimestampsInserted: 52,
		LargeGaps: []model.LargeGap{
			{Start: base.Add(50 * time.Hour), End: base.Add(60 * time.Hour), MissingIntervals: 39},
			{Start: base.Add(2 * time.Hour), End: base.Add(8 * time.Hour), MissingIntervals: 23},
		},
		RangeViolations: 1,
		JumpViolations:  2,
		IncompleteRows:  52,
		GapsFilled:      48,
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "CLF_1")
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusQueued, run.Status)
		assert.Equal(t, "CLF_1", run.FileID)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, model.RunStatusQueued, got.Status)
		assert.Equal(t, "CLF_1", got.FileID)
		assert.Nil(t, got.Report)
		assert.Empty(t, got.Error)
	})

	t.Run("UpdateRunStatus", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "CLF_2")
		require.NoError(t, err)

		require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusRunning, got.Status)
	})

	t.Run("CompleteRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "CLF_3")
		require.NoError(t, err)

		report := sampleReport("CLF_3")
		require.NoError(t, s.CompleteRun(ctx, run.ID, report))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		require.NotNil(t, got.Report)
		assert.Equal(t, 384, got.Report.Rows)
		assert.Equal(t, 48, got.Report.GapsFilled)
		assert.Equal(t, model.LoggerTypeMultiChannel, got.Report.LoggerType)
		assert.Len(t, got.Report.LargeGaps, 2)

		gaps, err := s.ListLargeGaps(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, gaps, 2)
		assert.Equal(t, 23, gaps[0].MissingIntervals)
		assert.True(t, gaps[0].Start.Equal(report.LargeGaps[1].Start))
		assert.Equal(t, 39, gaps[1].MissingIntervals)
	})

	t.Run("CompleteRunTwiceReplacesGaps", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "CLF_4")
		require.NoError(t, err)
		require.NoError(t, s.CompleteRun(ctx, run.ID, sampleReport("CLF_4")))

		report := sampleReport("CLF_4")
		report.LargeGaps = report.LargeGaps[:1]
		require.NoError(t, s.CompleteRun(ctx, run.ID, report))

		gaps, err := s.ListLargeGaps(ctx, run.ID)
		require.NoError(t, err)
		assert.Len(t, gaps, 1)
	})

	t.Run("FailRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "CLF_5")
		require.NoError(t, err)

		require.NoError(t, s.FailRun(ctx, run.ID, "read: no timestamp column"))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, got.Status)
		assert.Equal(t, "read: no timestamp column", got.Error)
		assert.Nil(t, got.Report)
	})

	t.Run("ListRuns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		r1, err := s.CreateRun(ctx, "CLF_A")
		require.NoError(t, err)
		_, err = s.CreateRun(ctx, "CLF_B")
		require.NoError(t, err)
		_, err = s.CreateRun(ctx, "CLF_A")
		require.NoError(t, err)
		require.NoError(t, s.FailRun(ctx, r1.ID, "boom"))

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		failed, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, r1.ID, failed[0].ID)

		byFile, err := s.ListRuns(ctx, RunFilter{FileID: "CLF_A"})
		require.NoError(t, err)
		assert.Len(t, byFile, 2)

		limited, err := s.ListRuns(ctx, RunFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		offset, err := s.ListRuns(ctx, RunFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, offset, 1)

		recent, err := s.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(-time.Hour)})
		require.NoError(t, err)
		assert.Len(t, recent, 3)

		future, err := s.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(time.Hour)})
		require.NoError(t, err)
		assert.Empty(t, future)
	})

	t.Run("NotFound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetRun(ctx, "missing")
		assert.True(t, eris.Is(err, ErrNotFound))

		err = s.UpdateRunStatus(ctx, "missing", model.RunStatusRunning)
		assert.True(t, eris.Is(err, ErrNotFound))

		err = s.FailRun(ctx, "missing", "x")
		assert.True(t, eris.Is(err, ErrNotFound))

		err = s.CompleteRun(ctx, "missing", sampleReport("x"))
		assert.True(t, eris.Is(err, ErrNotFound))

		gaps, err := s.ListLargeGaps(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, gaps)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestNewSQLite_BadPath(t *testing.T) {
	_, err := NewSQLite(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, configFor("none", ""))
	require.NoError(t, err)
	assert.Nil(t, st)

	st, err = Open(ctx, configFor("sqlite", filepath.Join(t.TempDir(), "runs.db")))
	require.NoError(t, err)
	require.NotNil(t, st)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	run, err := st.CreateRun(ctx, "CLF_1")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	_, err = Open(ctx, configFor("mysql", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
