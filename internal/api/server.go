// Package api serves the QA pipeline over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/microclimate-qa/internal/batch"
	"github.com/sells-group/microclimate-qa/internal/clf"
	"github.com/sells-group/microclimate-qa/internal/deploy"
	"github.com/sells-group/microclimate-qa/internal/monitoring"
	"github.com/sells-group/microclimate-qa/internal/store"
)

const defaultMaxBody = 64 << 20

// Deps are the components behind the API. Store, Detector and Metrics are
// optional; endpoints that need a missing one answer 503.
type Deps struct {
	Runner      *batch.Runner
	Detector    *deploy.Detector
	Store       store.Store
	Metrics     *monitoring.Metrics
	ReadOptions clf.Options
	MaxBody     int64
	CORSOrigins []string

	// RateLimit caps /v1 requests per second across all clients. Zero disables it.
	RateLimit      float64
	RateLimitBurst int
}

// Server routes HTTP requests to the pipeline, detector and store.
type Server struct {
	deps      Deps
	collector *monitoring.Collector
	router    chi.Router
}

// New builds the router.
func New(deps Deps) *Server {
	if deps.MaxBody <= 0 {
		deps.MaxBody = defaultMaxBody
	}
	if len(deps.CORSOrigins) == 0 {
		deps.CORSOrigins = []string{"*"}
	}

	s := &Server{deps: deps}
	if deps.Store != nil {
		s.collector = monitoring.NewCollector(deps.Store)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Content-Encoding"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		if deps.RateLimit > 0 {
			r.Use(rateLimiter(rate.NewLimiter(rate.Limit(deps.RateLimit), max(deps.RateLimitBurst, 1))))
		}
		r.Post("/qa", s.handleQA)
		r.Post("/deployment", s.handleDeployment)

		r.Group(func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/runs", s.handleListRuns)
			r.Get("/runs/{id}", s.handleGetRun)
			r.Get("/runs/{id}/gaps", s.handleListGaps)
			r.Get("/status", s.handleStatus)
		})
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Store == nil {
			writeError(w, http.StatusServiceUnavailable, "run store is disabled")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func rateLimiter(lim *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
