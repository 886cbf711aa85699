package mastery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abhisek/skilltrace/internal/curriculum"
	"github.com/abhisek/skilltrace/internal/keylock"
	"github.com/abhisek/skilltrace/internal/store"
)

// History reads a learner's attempt log.
type History interface {
	LearnerAttempts(ctx context.Context, learnerID string, opts store.QueryOpts) ([]store.AttemptEvent, error)
}

// SnapshotStore memoizes projections. It never holds authoritative state:
// anything it returns is advanced from the log and periodically checked
// against a full replay.
type SnapshotStore interface {
	Latest(ctx context.Context, learnerID string) (*store.Snapshot, error)
	Save(ctx context.Context, snap *store.Snapshot) error
	Delete(ctx context.Context, learnerID string) error
}

// Config tunes the aggregator.
type Config struct {
	// MinAttempts is the attempt count from which a record is confident.
	MinAttempts int
	// ReconcileEvery verifies the cached projection against a full replay
	// on every Nth computation per learner. Zero disables periodic checks.
	ReconcileEvery int
}

// DefaultConfig returns the default aggregator settings.
func DefaultConfig() Config {
	return Config{MinAttempts: DefaultMinAttempts, ReconcileEvery: 50}
}

// Service computes mastery from the attempt log.
type Service struct {
	catalog *curriculum.Catalog
	history History
	cache   SnapshotStore
	cfg     Config
	logger  *slog.Logger

	locks    keylock.Map
	mu       sync.Mutex
	computes map[string]int
}

// NewService creates a mastery service. cache may be nil to always replay.
func NewService(cat *curriculum.Catalog, history History, cache SnapshotStore, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinAttempts <= 0 {
		cfg.MinAttempts = DefaultMinAttempts
	}
	return &Service{
		catalog:  cat,
		history:  history,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
		computes: make(map[string]int),
	}
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// ComputeMastery returns the reported mastery of every attempted token for
// a learner, in topological order. A learner without history gets an empty
// slice.
func (s *Service) ComputeMastery(ctx context.Context, learnerID string) ([]Record, error) {
	p, err := s.Projection(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	return s.Records(p), nil
}

// Records derives reported mastery from a projection using the service's
// graph and confidence threshold.
func (s *Service) Records(p *Projection) []Record {
	records := Records(p, s.catalog.Graph, s.cfg.MinAttempts)
	if records == nil {
		records = []Record{}
	}
	return records
}

// Replay folds the learner's full history without consulting the cache.
func (s *Service) Replay(ctx context.Context, learnerID string) (*Projection, error) {
	events, err := s.history.LearnerAttempts(ctx, learnerID, store.QueryOpts{})
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", learnerID, err)
	}
	return Replay(events, s.catalog.Bank), nil
}

// Projection returns the learner's current fold, advancing the cached one
// when possible.
func (s *Service) Projection(ctx context.Context, learnerID string) (*Projection, error) {
	if s.cache == nil {
		return s.Replay(ctx, learnerID)
	}

	unlock := s.locks.Lock(learnerID)
	defer unlock()

	if s.dueForReconcile(learnerID) {
		res, err := s.reconcileLocked(ctx, learnerID)
		if err != nil {
			return nil, err
		}
		return res.projection, nil
	}

	p, err := s.advanceCached(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) dueForReconcile(learnerID string) bool {
	if s.cfg.ReconcileEvery <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.computes[learnerID]++
	return s.computes[learnerID]%s.cfg.ReconcileEvery == 0
}

// advanceCached loads the memoized fold and applies only the events after
// its watermark. A late event that sorts before the watermark invalidates
// the memo and forces a full replay.
func (s *Service) advanceCached(ctx context.Context, learnerID string) (*Projection, error) {
	snap, err := s.cache.Latest(ctx, learnerID)
	if err != nil {
		s.logger.Warn("mastery cache read failed, replaying", "learner", learnerID, "error", err)
		snap = nil
	}
	p := FromSnapshot(snap)
	if p == nil {
		return s.replayAndStore(ctx, learnerID)
	}

	events, err := s.history.LearnerAttempts(ctx, learnerID, store.QueryOpts{After: p.Sequence()})
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", learnerID, err)
	}
	if len(events) == 0 {
		return p, nil
	}
	for _, ev := range events {
		if ev.Timestamp.Before(p.Watermark()) {
			s.logger.Info("late attempt before mastery watermark, replaying",
				"learner", learnerID, "sequence", ev.Sequence)
			return s.replayAndStore(ctx, learnerID)
		}
	}
	for _, ev := range events {
		p.Fold(ev, s.catalog.Bank)
	}
	s.store(ctx, learnerID, p)
	return p, nil
}

func (s *Service) replayAndStore(ctx context.Context, learnerID string) (*Projection, error) {
	p, err := s.Replay(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if !p.Empty() {
		s.store(ctx, learnerID, p)
	}
	return p, nil
}

func (s *Service) store(ctx context.Context, learnerID string, p *Projection) {
	if err := s.cache.Save(ctx, p.Snapshot(learnerID)); err != nil {
		s.logger.Warn("mastery cache write failed", "learner", learnerID, "error", err)
	}
}

// ReconcileResult reports the outcome of checking the cache against a replay.
type ReconcileResult struct {
	LearnerID string `json:"learnerId"`
	Cached    bool   `json:"cached"`
	Diverged  bool   `json:"diverged"`
	Events    int    `json:"events"`
	Skipped   int    `json:"skipped"`

	projection *Projection
}

// Reconcile recomputes the learner's fold from the full log, compares it
// with the cached fold, and overwrites the cache with the replay. Divergence
// is logged; the replay always wins.
func (s *Service) Reconcile(ctx context.Context, learnerID string) (ReconcileResult, error) {
	if s.cache == nil {
		p, err := s.Replay(ctx, learnerID)
		if err != nil {
			return ReconcileResult{}, err
		}
		return ReconcileResult{LearnerID: learnerID, Events: p.Events(), Skipped: p.Skipped(), projection: p}, nil
	}
	unlock := s.locks.Lock(learnerID)
	defer unlock()
	return s.reconcileLocked(ctx, learnerID)
}

func (s *Service) reconcileLocked(ctx context.Context, learnerID string) (ReconcileResult, error) {
	cached, err := s.advanceCached(ctx, learnerID)
	if err != nil {
		return ReconcileResult{}, err
	}
	replayed, err := s.Replay(ctx, learnerID)
	if err != nil {
		return ReconcileResult{}, err
	}

	res := ReconcileResult{
		LearnerID:  learnerID,
		Cached:     true,
		Events:     replayed.Events(),
		Skipped:    replayed.Skipped(),
		projection: replayed,
	}
	if !cached.SameTallies(replayed) {
		res.Diverged = true
		s.logger.Warn("mastery cache diverged from replay, overwriting",
			"learner", learnerID, "sequence", replayed.Sequence())
		if err := s.cache.Delete(ctx, learnerID); err != nil {
			s.logger.Warn("mastery cache delete failed", "learner", learnerID, "error", err)
		}
	}
	if !replayed.Empty() {
		s.store(ctx, learnerID, replayed)
	}
	return res, nil
}
