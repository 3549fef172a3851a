package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/microclimate-qa/internal/batch"
	"github.com/sells-group/microclimate-qa/internal/edit"
	"github.com/sells-group/microclimate-qa/internal/model"
	"github.com/sells-group/microclimate-qa/internal/monitoring"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			FileID:    "CLF_94200119_2024_11_04_TMS",
			Status:    model.RunStatusComplete,
			Report:    &model.QAReport{RangeViolations: 3, JumpViolations: 1, GapsFilled: 12},
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Second),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			FileID:    "CLF_2",
			Status:    model.RunStatusFailed,
			Error:     "clf: no timestamp column",
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "FILE")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "CLF_94200119_2024_11_04_TMS")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-")
	assert.Contains(t, output, "12")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestFormatReports(t *testing.T) {
	var buf bytes.Buffer
	formatReports(&buf, []model.QAReport{{
		FileID:                    "CLF_1",
		LoggerType:                model.LoggerTypeMultiChannel,
		Rows:                      384,
		MissingTimestampsInserted: 52,
		LargeGaps:                 []model.LargeGap{{MissingIntervals: 40}},
		GapsFilled:                48,
	}})

	out := buf.String()
	assert.Contains(t, out, "FILE")
	assert.Contains(t, out, "CLF_1")
	assert.Contains(t, out, "TMS")
	assert.Contains(t, out, "384")
	assert.Contains(t, out, "48")

	buf.Reset()
	formatReports(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestFormatFailures(t *testing.T) {
	var buf bytes.Buffer
	formatFailures(&buf, []batch.Failure{{FileID: "CLF_2", Error: "boom"}})
	assert.Equal(t, "FAILED CLF_2: boom\n", buf.String())
}

func TestFormatOutcomes(t *testing.T) {
	var buf bytes.Buffer
	formatOutcomes(&buf, []edit.Outcome{{Op: edit.OpNullValues, Affected: 2}, {Op: edit.OpRemoveRows, Affected: 3}})
	out := buf.String()
	assert.Contains(t, out, "null_values")
	assert.Contains(t, out, "remove_rows")
	assert.Contains(t, out, "3")
}

func TestFormatSnapshot(t *testing.T) {
	var buf bytes.Buffer
	formatSnapshot(&buf, &monitoring.MetricsSnapshot{
		RunsTotal:     10,
		RunsComplete:  8,
		RunsFailed:    2,
		FailRate:      0.2,
		LookbackHours: 24,
	})
	out := buf.String()
	assert.Contains(t, out, "Runs (last 24h):")
	assert.Contains(t, out, "20.0%")
}
