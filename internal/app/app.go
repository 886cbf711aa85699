// Package app wires configuration, storage and the engine components into
// one process-wide object shared by the CLI and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/skilltrace/internal/api"
	"github.com/abhisek/skilltrace/internal/cache"
	"github.com/abhisek/skilltrace/internal/config"
	"github.com/abhisek/skilltrace/internal/curriculum"
	"github.com/abhisek/skilltrace/internal/diagnosis"
	"github.com/abhisek/skilltrace/internal/exam"
	"github.com/abhisek/skilltrace/internal/ingest"
	"github.com/abhisek/skilltrace/internal/insights"
	"github.com/abhisek/skilltrace/internal/llm"
	"github.com/abhisek/skilltrace/internal/mastery"
	"github.com/abhisek/skilltrace/internal/report"
	"github.com/abhisek/skilltrace/internal/store"
)

// App holds the constructed components.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Location *time.Location

	Store   *store.Store
	Cache   *cache.Cache // nil unless cache.driver is redis
	Catalog *curriculum.Catalog

	Mastery  *mastery.Service
	Detector *diagnosis.Detector
	Recorder *ingest.Recorder
	Exams    *exam.Generator
	Reports  *report.Builder
	Insights *insights.Generator
}

// New loads content, opens storage and builds every component. Content
// errors are fatal: the engine never starts on an inconsistent catalog.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	cat, err := curriculum.LoadDir(cfg.Content.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("load content from %s: %w", cfg.Content.Dir, err)
	}

	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Location: loc,
		Store:    st,
		Catalog:  cat,
	}

	snapshots, err := a.snapshotStore(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}

	a.Mastery = mastery.NewService(cat, st.EventRepo(), snapshots, mastery.Config{
		MinAttempts:    cfg.Mastery.MinAttempts,
		ReconcileEvery: cfg.Mastery.ReconcileEvery,
	}, logger.With("component", "mastery"))
	a.Detector = diagnosis.NewDetector(cat, a.Mastery)
	a.Recorder = ingest.NewRecorder(cat.Bank, st.EventRepo(), st.LearnerRepo(), logger.With("component", "ingest"))

	strategy, err := exam.ParseStrategy(cfg.Exam.Strategy)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Exams = exam.NewGenerator(cat, exam.WithStrategy(strategy))
	a.Reports = report.NewBuilder(cat, st.LearnerRepo(), st.EventRepo(), a.Mastery, a.Detector, loc)

	provider, err := llm.New(ctx, cfg.LLM, st.EventRepo(), logger.With("component", "llm"))
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Debug("no LLM provider configured, parent insights disabled")
	case err != nil:
		a.Close()
		return nil, err
	}
	a.Insights = insights.NewGenerator(provider, insights.Config{
		MaxTokens:   cfg.Insights.MaxTokens,
		Temperature: cfg.Insights.Temperature,
		Timeout:     cfg.Insights.Timeout,
	}, logger.With("component", "insights"))

	logger.Info("engine ready",
		"tokens", cat.Graph.Len(),
		"questions", cat.Bank.Len(),
		"database", cfg.Database.Driver,
		"cache", cfg.Cache.Driver,
		"llm", cfg.LLM.Provider)
	return a, nil
}

// snapshotStore selects where mastery folds are memoized. The result is a
// nil interface when caching is disabled.
func (a *App) snapshotStore(ctx context.Context) (mastery.SnapshotStore, error) {
	cfg := a.Config.Cache
	switch cfg.Driver {
	case config.CacheNone:
		return nil, nil
	case config.CacheRedis:
		c, err := cache.New(ctx, cfg.URL, cfg.TTL)
		if err != nil {
			return nil, err
		}
		a.Cache = c
		return c, nil
	default:
		return &prunedSnapshots{SnapshotRepo: a.Store.SnapshotRepo(), keep: cfg.Keep, logger: a.Logger}, nil
	}
}

// prunedSnapshots bounds the SQL snapshot table to the newest keep rows per
// learner.
type prunedSnapshots struct {
	store.SnapshotRepo
	keep   int
	logger *slog.Logger
}

func (p *prunedSnapshots) Save(ctx context.Context, snap *store.Snapshot) error {
	if err := p.SnapshotRepo.Save(ctx, snap); err != nil {
		return err
	}
	if p.keep > 0 {
		if err := p.Prune(ctx, snap.LearnerID, p.keep); err != nil {
			p.logger.Warn("prune mastery snapshots", "learner", snap.LearnerID, "error", err)
		}
	}
	return nil
}

// APIDeps exposes the components to the HTTP layer.
func (a *App) APIDeps() api.Deps {
	checks := map[string]api.CheckFunc{"database": a.Store.Ping}
	if a.Cache != nil {
		checks["cache"] = a.Cache.HealthCheck
	}
	return api.Deps{
		Catalog:  a.Catalog,
		Learners: a.Store.LearnerRepo(),
		History:  a.Store.EventRepo(),
		Mastery:  a.Mastery,
		Detector: a.Detector,
		Recorder: a.Recorder,
		Exams:    a.Exams,
		Reports:  a.Reports,
		Insights: a.Insights,
		Checks:   checks,
	}
}

// APIOptions derives HTTP options from the configuration.
func (a *App) APIOptions() api.Options {
	return api.Options{
		RequestTimeout:   a.Config.Server.RequestTimeout,
		AllowedOrigins:   a.Config.Server.AllowedOrigins,
		DefaultExamCount: a.Config.Exam.DefaultCount,
		Location:         a.Location,
	}
}

// Close releases storage and cache connections.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
