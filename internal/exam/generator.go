// Package exam assembles multiple-choice exams for a year level and subject.
package exam

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/skilltrace/internal/curriculum"
	"github.com/abhisek/skilltrace/internal/questionbank"
)

var (
	ErrInvalidCount      = errors.New("question count must be positive")
	ErrEmptyScope        = questionbank.ErrEmptyScope
	ErrUnknownStrategy   = errors.New("unknown exam strategy")
	ErrDuplicateQuestion = errors.New("question listed more than once")
)

// Strategy selects how questions are drawn from the pool.
type Strategy string

const (
	// StrategyShuffle draws uniformly from the whole pool.
	StrategyShuffle Strategy = "shuffle"
	// StrategyStratified spreads questions across sections.
	StrategyStratified Strategy = "stratified"
)

// ParseStrategy validates a strategy name. Empty means shuffle.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyShuffle:
		return StrategyShuffle, nil
	case StrategyStratified:
		return StrategyStratified, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Spec describes the exam to generate.
type Spec struct {
	YearLevel int    `json:"yearLevel"`
	Subject   string `json:"subject"`
	Count     int    `json:"count"`
}

// Question is a bank question annotated with its section context.
type Question struct {
	questionbank.Question
	SectionID    string
	SectionTitle string
	ChapterID    string
}

// Exam is a generated exam.
type Exam struct {
	ID          string
	Spec        Spec
	Strategy    Strategy
	Questions   []Question
	GeneratedAt time.Time
}

// QuestionIDs returns the exam's question IDs in exam order.
func (e *Exam) QuestionIDs() []string {
	ids := make([]string, len(e.Questions))
	for i, q := range e.Questions {
		ids[i] = q.ID
	}
	return ids
}

// Generator draws exams from a catalog. It is safe for concurrent use.
type Generator struct {
	bank     *questionbank.Bank
	strategy Strategy
	now      func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed makes question selection reproducible.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithStrategy selects the sampling strategy.
func WithStrategy(s Strategy) Option {
	return func(g *Generator) { g.strategy = s }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a generator over the catalog's question bank.
func NewGenerator(cat *curriculum.Catalog, opts ...Option) *Generator {
	g := &Generator{
		bank:     cat.Bank,
		strategy: StrategyShuffle,
		now:      time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return g
}

// Generate builds an exam of up to spec.Count questions drawn from every
// section of the year level and subject. When the pool is smaller than
// Count, the whole pool is returned.
func (g *Generator) Generate(spec Spec) (*Exam, error) {
	if spec.Count <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, spec.Count)
	}

	sections := g.bank.SectionsFor(spec.YearLevel, spec.Subject)
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: no sections for year %d %q", ErrEmptyScope, spec.YearLevel, spec.Subject)
	}
	ids := make([]string, len(sections))
	for i, s := range sections {
		ids[i] = s.ID
	}

	g.mu.Lock()
	var picked []questionbank.Question
	var err error
	switch g.strategy {
	case StrategyStratified:
		picked, err = g.bank.StratifiedSample(g.rng, ids, spec.Count)
	default:
		picked, err = g.bank.RandomSample(g.rng, ids, spec.Count)
	}
	g.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("year %d %q: %w", spec.YearLevel, spec.Subject, err)
	}

	questions := make([]Question, len(picked))
	for i, q := range picked {
		questions[i] = Question{
			Question:     q,
			SectionID:    q.Location.SectionID,
			SectionTitle: q.Location.SectionTitle,
			ChapterID:    q.Location.ChapterID,
		}
	}

	return &Exam{
		ID:          uuid.NewString(),
		Spec:        spec,
		Strategy:    g.strategy,
		Questions:   questions,
		GeneratedAt: g.now(),
	}, nil
}

// Rebuild reconstructs exam questions from their IDs, preserving order.
// Used when a client submits answers for a previously generated exam.
// A repeated ID is rejected; each question is one answer and one attempt.
func Rebuild(bank *questionbank.Bank, questionIDs []string) ([]Question, error) {
	out := make([]Question, 0, len(questionIDs))
	seen := make(map[string]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateQuestion, id)
		}
		seen[id] = struct{}{}
		q, err := bank.Question(id)
		if err != nil {
			return nil, err
		}
		out = append(out, Question{
			Question:     q,
			SectionID:    q.Location.SectionID,
			SectionTitle: q.Location.SectionTitle,
			ChapterID:    q.Location.ChapterID,
		})
	}
	return out, nil
}
