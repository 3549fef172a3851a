package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/microclimate-qa/internal/batch"
	"github.com/sells-group/microclimate-qa/internal/clf"
	"github.com/sells-group/microclimate-qa/internal/deploy"
	"github.com/sells-group/microclimate-qa/internal/model"
	"github.com/sells-group/microclimate-qa/internal/store"
)

const (
	defaultLookbackHours = 24
	maxLookbackHours     = 24 * 90
	outputCSV            = "csv"
)

type qaResponse struct {
	RunID  string         `json:"run_id,omitempty"`
	Report model.QAReport `json:"report"`
}

type deploymentResponse struct {
	Window *model.DeploymentWindow `json:"window"`
	Reason string                  `json:"reason,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readSeries decodes the request body as a logger table.
func (s *Server) readSeries(w http.ResponseWriter, r *http.Request, id string) (*clf.Table, bool) {
	body := http.MaxBytesReader(w, r.Body, s.deps.MaxBody)
	tbl, err := clf.Read(r.Context(), body, id, s.deps.ReadOptions)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		case eris.Is(err, clf.ErrNoTimestampColumn):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusBadRequest, "unreadable table: "+err.Error())
		}
		return nil, false
	}
	return tbl, true
}

func (s *Server) handleQA(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("file_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "file_id is required")
		return
	}
	tbl, ok := s.readSeries(w, r, id)
	if !ok {
		return
	}

	out, err := s.deps.Runner.Process(r.Context(), batch.Job{Series: tbl.Series, ParseErrors: tbl.ParseErrors})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if r.URL.Query().Get("output") == outputCSV {
		w.Header().Set("Content-Type", "text/csv")
		if out.RunID != "" {
			w.Header().Set("X-Run-ID", out.RunID)
		}
		if err := clf.Write(w, out.Result.Series, clf.WriteOptions{Flags: out.Result.Flags}); err != nil {
			zap.L().Warn("api: write cleaned series", zap.String("file", id), zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, qaResponse{RunID: out.RunID, Report: out.Result.Report})
}

func (s *Server) handleDeployment(w http.ResponseWriter, r *http.Request) {
	if s.deps.Detector == nil {
		writeError(w, http.StatusServiceUnavailable, "deployment detection is not configured (deploy.day_in_streak)")
		return
	}
	q := r.URL.Query()
	dir, ok := deploy.ParseDirection(q.Get("direction"))
	if !ok {
		writeError(w, http.StatusBadRequest, "direction must be start or end")
		return
	}
	mode, ok := deploy.ParseSliceMode(q.Get("slice"))
	if !ok {
		writeError(w, http.StatusBadRequest, "slice must be from or after")
		return
	}
	id := q.Get("file_id")
	if id == "" {
		id = "upload"
	}

	tbl, ok := s.readSeries(w, r, id)
	if !ok {
		return
	}

	win, err := s.deps.Detector.Detect(tbl.Series, dir)
	if err != nil {
		if deploy.Unresolved(err) {
			writeJSON(w, http.StatusOK, deploymentResponse{Reason: err.Error()})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if q.Get("output") == outputCSV {
		w.Header().Set("Content-Type", "text/csv")
		if err := clf.Write(w, deploy.Slice(tbl.Series, win, mode), clf.WriteOptions{}); err != nil {
			zap.L().Warn("api: write sliced series", zap.String("file", id), zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, deploymentResponse{Window: win})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		FileID: q.Get("file_id"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit"), 0); err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset"), 0); err != nil {
		writeError(w, http.StatusBadRequest, "offset must be an integer")
		return
	}

	runs, err := s.deps.Store.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.deps.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListGaps(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.deps.Store.GetRun(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	gaps, err := s.deps.Store.ListLargeGaps(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if gaps == nil {
		gaps = []model.LargeGap{}
	}
	writeJSON(w, http.StatusOK, gaps)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	hours, err := intParam(r.URL.Query().Get("lookback_hours"), defaultLookbackHours)
	if err != nil || hours < 1 || hours > maxLookbackHours {
		writeError(w, http.StatusBadRequest, "lookback_hours must be between 1 and 2160")
		return
	}
	snap, err := s.collector.Collect(r.Context(), hours)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
