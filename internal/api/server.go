// Package api exposes the engine over HTTP for dashboards and parent-facing
// clients.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/abhisek/skilltrace/internal/curriculum"
	"github.com/abhisek/skilltrace/internal/diagnosis"
	"github.com/abhisek/skilltrace/internal/exam"
	"github.com/abhisek/skilltrace/internal/ingest"
	"github.com/abhisek/skilltrace/internal/insights"
	"github.com/abhisek/skilltrace/internal/mastery"
	"github.com/abhisek/skilltrace/internal/report"
	"github.com/abhisek/skilltrace/internal/store"
)

// CheckFunc reports whether a dependency is ready to serve.
type CheckFunc func(ctx context.Context) error

// Deps are the engine components the handlers call into.
type Deps struct {
	Catalog  *curriculum.Catalog
	Learners store.LearnerRepo
	History  mastery.History
	Mastery  *mastery.Service
	Detector *diagnosis.Detector
	Recorder *ingest.Recorder
	Exams    *exam.Generator
	Reports  *report.Builder
	Insights *insights.Generator

	// Checks are run by /readyz, keyed by dependency name.
	Checks map[string]CheckFunc
}

// Options configures the HTTP surface.
type Options struct {
	RequestTimeout   time.Duration
	AllowedOrigins   []string
	DefaultExamCount int
	Location         *time.Location
}

// Server routes HTTP requests to the engine.
type Server struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New creates a server.
func New(deps Deps, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.DefaultExamCount <= 0 {
		opts.DefaultExamCount = 10
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{deps: deps, opts: opts, logger: logger, now: time.Now}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(s.logger), middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/children", func(r chi.Router) {
			r.Get("/", s.listChildren)
			r.Post("/", s.createChild)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/progress", s.childProgress)
				r.Get("/report", s.childReport)
				r.Get("/weaknesses", s.childWeaknesses)
				r.Get("/daily-stats", s.childDailyStats)
				r.Get("/mastery", s.childMastery)
				r.Post("/attempts", s.recordAttempt)
			})
		})
		r.Post("/exams", s.generateExam)
		r.Post("/exams/score", s.scoreExam)
		r.Get("/tokens/{id}", s.getToken)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests for up to shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.opts.RequestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
