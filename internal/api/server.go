package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/database"
	"github.com/JakeFAU/jobboard-crawler/internal/metrics"
	"github.com/JakeFAU/jobboard-crawler/internal/progress/sinks"
)

const (
	requestTimeout = 30 * time.Second
	readTimeout    = 3 * time.Second
)

// Deps are the read-only views the server exposes. Ledger may be nil.
type Deps struct {
	Board  *sinks.Board
	Ledger database.Ledger
	Store  crawler.Store
	APIKey string
	Logger *zap.Logger
}

// Server wires HTTP handlers to the progress board, the run ledger and the posting store.
type Server struct {
	router chi.Router
	deps   Deps
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Board == nil {
		deps.Board = sinks.NewBoard(0)
	}
	s := &Server{deps: deps, logger: deps.Logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(timeoutMiddleware(requestTimeout))
		if deps.APIKey != "" {
			r.Use(apiKeyMiddleware(deps.APIKey))
		}
		r.Get("/runs", s.listRuns)
		r.Get("/runs/{run_id}", s.getRun)
		r.Get("/sites/{site}/runs", s.siteHistory)
		r.Get("/sites/{site}/stats", s.siteStats)
		r.Get("/postings", s.findPosting)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz checks that the posting store answers.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "posting store unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()
	if _, err := s.deps.Store.Stats(ctx, crawler.PlatformWanted); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "posting store not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listRuns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"runs": s.deps.Board.Runs()})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	if err := uuid.Validate(runID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid run_id")
		return
	}
	run, ok := s.deps.Board.Run(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

func (s *Server) siteHistory(w http.ResponseWriter, r *http.Request) {
	site, ok := s.parseSite(w, r)
	if !ok {
		return
	}
	if s.deps.Ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "run ledger unavailable")
		return
	}
	limit, _, err := parseLimitOffset(r, defaultRunLimit, maxRunLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()
	rows, err := s.deps.Ledger.RecentRuns(ctx, site, limit)
	if err != nil {
		s.logger.Error("list recent runs failed", zap.String("site", string(site)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if rows == nil {
		rows = []database.RunRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": rows})
}

func (s *Server) siteStats(w http.ResponseWriter, r *http.Request) {
	site, ok := s.parseSite(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()
	stats, err := s.deps.Store.Stats(ctx, site)
	if err != nil {
		s.logger.Error("posting stats failed", zap.String("site", string(site)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, toStatsDTO(stats))
}

func (s *Server) findPosting(w http.ResponseWriter, r *http.Request) {
	jobURL := r.URL.Query().Get("url")
	if jobURL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()
	posting, err := s.deps.Store.FindByURL(ctx, jobURL)
	if err != nil {
		s.logger.Error("find posting failed", zap.String("url", jobURL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load posting")
		return
	}
	if posting == nil {
		writeError(w, http.StatusNotFound, "posting not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posting": posting})
}

func (s *Server) parseSite(w http.ResponseWriter, r *http.Request) (crawler.Platform, bool) {
	site, err := crawler.ParsePlatform(chi.URLParam(r, "site"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return "", false
	}
	return site, true
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		reqID, _ := r.Context().Value(requestIDKey{}).(string)
		s.logger.Debug("request completed",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec), zap.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Serve runs srv until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("ops server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ops server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown ops server: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
