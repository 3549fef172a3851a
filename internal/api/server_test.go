package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/microclimate-qa/internal/batch"
	"github.com/sells-group/microclimate-qa/internal/deploy"
	"github.com/sells-group/microclimate-qa/internal/model"
	"github.com/sells-group/microclimate-qa/internal/monitoring"
	"github.com/sells-group/microclimate-qa/internal/qa"
	"github.com/sells-group/microclimate-qa/internal/store"
)

var base = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

// loggerCSV renders n quarter-hourly rows with a gap at rows 3 and 4.
func loggerCSV(n int) string {
	var b strings.Builder
	b.WriteString("datetime,t1,t2,t3\n")
	for i := 0; i < n; i++ {
		if i == 3 || i == 4 {
			continue
		}
		ts := base.Add(time.Duration(i) * 15 * time.Minute)
		fmt.Fprintf(&b, "%s,12.5,14.0,11.0\n", ts.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

// airCSV renders hourly air temperatures over len(outdoor) days. Outdoor days
// swing by 8 degrees, indoor days stay flat.
func airCSV(outdoor []bool) string {
	var b strings.Builder
	b.WriteString("datetime,t3\n")
	for d, out := range outdoor {
		for h := 0; h < 24; h++ {
			ts := base.Add(time.Duration(d*24+h) * time.Hour)
			v := 20.0
			if out {
				v = 15 + 4*math.Sin(2*math.Pi*float64(h)/24)
			}
			fmt.Fprintf(&b, "%s,%.3f\n", ts.Format(time.RFC3339), v)
		}
	}
	return b.String()
}

type testEnv struct {
	srv     *httptest.Server
	store   store.Store
	metrics *monitoring.Metrics
}

func newTestEnv(t *testing.T, withStore, withDetector bool) *testEnv {
	t.Helper()
	env := &testEnv{metrics: monitoring.NewMetrics()}

	opts := []batch.Option{batch.WithMetrics(env.metrics)}
	if withStore {
		st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() }) //nolint:errcheck
		require.NoError(t, st.Migrate(context.Background()))
		env.store = st
		opts = append(opts, batch.WithStore(st))
	}

	deps := Deps{
		Runner:  batch.New(qa.New(qa.DefaultSettings()), opts...),
		Metrics: env.metrics,
		MaxBody: 1 << 20,
	}
	if env.store != nil {
		deps.Store = env.store
	}
	if withDetector {
		det, err := deploy.NewDetector(deploy.Settings{
			DropThreshold:     -5,
			ConsecutiveNights: 3,
			DayInStreak:       1,
			BufferDays:        7,
			AirChannel:        model.ChannelAir,
			SoilChannel:       model.ChannelSoil,
		})
		require.NoError(t, err)
		deps.Detector = det
	}

	env.srv = httptest.NewServer(New(deps).Handler())
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(e.srv.URL+path, "text/csv", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() }) //nolint:errcheck
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() }) //nolint:errcheck
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false, false)
	resp := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestQA_ReportAndRun(t *testing.T) {
	env := newTestEnv(t, true, false)

	resp := env.post(t, "/v1/qa?file_id=CLF_7", loggerCSV(10))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[qaResponse](t, resp)
	assert.NotEmpty(t, got.RunID)
	assert.Equal(t, "CLF_7", got.Report.FileID)
	assert.Equal(t, 10, got.Report.Rows)
	assert.Equal(t, 2, got.Report.MissingTimestampsInserted)
	assert.Equal(t, 2, got.Report.GapsFilled)
	assert.Equal(t, model.LoggerTypeMultiChannel, got.Report.LoggerType)

	resp = env.get(t, "/v1/runs/"+got.RunID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	run := decode[model.Run](t, resp)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Report)
	assert.Equal(t, 10, run.Report.Rows)

	resp = env.get(t, "/v1/runs?file_id=CLF_7")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Run](t, resp), 1)

	resp = env.get(t, "/v1/runs/"+got.RunID+"/gaps")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]model.LargeGap](t, resp))

	resp = env.get(t, "/v1/status?lookback_hours=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[monitoring.MetricsSnapshot](t, resp)
	assert.Equal(t, 1, snap.RunsTotal)
	assert.Equal(t, 1, snap.RunsComplete)

	resp = env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := new(strings.Builder)
	_, err := bufio.NewReader(resp.Body).WriteTo(body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), `mcqa_series_total{status="complete"} 1`)
	assert.Contains(t, body.String(), "mcqa_gaps_filled_total 2")
}

func TestQA_CSVOutput(t *testing.T) {
	env := newTestEnv(t, false, false)

	resp := env.post(t, "/v1/qa?file_id=CLF_7&output=csv", loggerCSV(6))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(lines[0], "datetime,t1,t2,t3"))
	assert.True(t, strings.HasPrefix(lines[4], "2024-06-01T00:45:00Z,12.5,14,11"))
}

func TestQA_BadRequests(t *testing.T) {
	env := newTestEnv(t, false, false)

	resp := env.post(t, "/v1/qa", loggerCSV(4))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.post(t, "/v1/qa?file_id=x", "time,t1\n2024-06-01 00:00,1\n")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[map[string]string](t, resp)["error"], "no timestamp column")
}

func TestQA_WithoutStore(t *testing.T) {
	env := newTestEnv(t, false, false)

	resp := env.post(t, "/v1/qa?file_id=CLF_1", loggerCSV(4))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[qaResponse](t, resp).RunID)

	for _, path := range []string{"/v1/runs", "/v1/runs/abc", "/v1/status"} {
		resp = env.get(t, path)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestRuns_NotFoundAndBadParams(t *testing.T) {
	env := newTestEnv(t, true, false)

	resp := env.get(t, "/v1/runs/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.get(t, "/v1/runs/missing/gaps")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.get(t, "/v1/runs?limit=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.get(t, "/v1/status?lookback_hours=0")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.get(t, "/v1/runs")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]model.Run](t, resp))
}

func TestDeployment_AirOnly(t *testing.T) {
	env := newTestEnv(t, false, true)
	csv := airCSV([]bool{false, false, false, true, true, true})

	resp := env.post(t, "/v1/deployment?direction=start", csv)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[deploymentResponse](t, resp)
	require.NotNil(t, got.Window)
	assert.Equal(t, base.AddDate(0, 0, 3), got.Window.CutoffDay)
	assert.False(t, got.Window.Confirmed)
	assert.Empty(t, got.Reason)
}

func TestDeployment_SliceCSV(t *testing.T) {
	env := newTestEnv(t, false, true)
	csv := airCSV([]bool{false, false, false, true, true, true})

	resp := env.post(t, "/v1/deployment?direction=start&slice=from&output=csv", csv)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sc := bufio.NewScanner(resp.Body)
	n := 0
	var first string
	for sc.Scan() {
		if n == 1 {
			first = sc.Text()
		}
		n++
	}
	assert.Equal(t, 1+3*24, n)
	assert.True(t, strings.HasPrefix(first, "2024-06-04T00:00:00Z"))
}

func TestDeployment_Unresolved(t *testing.T) {
	env := newTestEnv(t, false, true)

	resp := env.post(t, "/v1/deployment?direction=end", airCSV([]bool{false, true, false}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[deploymentResponse](t, resp)
	assert.Nil(t, got.Window)
	assert.Contains(t, got.Reason, "insufficient data")
}

func TestDeployment_Errors(t *testing.T) {
	env := newTestEnv(t, false, false)
	resp := env.post(t, "/v1/deployment", airCSV([]bool{true}))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	env = newTestEnv(t, false, true)
	resp = env.post(t, "/v1/deployment?direction=sideways", airCSV([]bool{true}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.post(t, "/v1/deployment?slice=before", airCSV([]bool{true}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, false, false)

	req, err := http.NewRequest(http.MethodOptions, env.srv.URL+"/v1/qa", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	h := New(Deps{
		Runner:         batch.New(qa.New(qa.DefaultSettings())),
		RateLimit:      0.001,
		RateLimitBurst: 2,
	}).Handler()

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusTooManyRequests}, codes)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
