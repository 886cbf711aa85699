// Package ingest validates answered questions and appends them to the
// attempt log.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/skilltrace/internal/exam"
	"github.com/abhisek/skilltrace/internal/keylock"
	"github.com/abhisek/skilltrace/internal/questionbank"
	"github.com/abhisek/skilltrace/internal/scoring"
	"github.com/abhisek/skilltrace/internal/store"
)

var ErrMissingLearner = errors.New("learner id is required")

// AttemptInput is one answered question. A zero Timestamp means now; an
// ID makes the append idempotent.
type AttemptInput struct {
	ID           string    `json:"id,omitempty"`
	LearnerID    string    `json:"learnerId"`
	QuestionID   string    `json:"questionId"`
	ChosenOption int       `json:"chosenOption"`
	Timestamp    time.Time `json:"timestamp,omitempty"`
}

// Recorder appends validated attempts. Writes for one learner are
// serialized so their sequence order matches commit order; different
// learners proceed in parallel.
type Recorder struct {
	bank     *questionbank.Bank
	events   store.EventRepo
	learners store.LearnerRepo
	logger   *slog.Logger
	now      func() time.Time

	locks keylock.Map
}

// NewRecorder creates a recorder.
func NewRecorder(bank *questionbank.Bank, events store.EventRepo, learners store.LearnerRepo, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		bank:     bank,
		events:   events,
		learners: learners,
		logger:   logger,
		now:      time.Now,
	}
}

// Record validates and appends a single attempt.
func (r *Recorder) Record(ctx context.Context, in AttemptInput) (store.AttemptEvent, error) {
	if in.LearnerID == "" {
		return store.AttemptEvent{}, ErrMissingLearner
	}
	q, err := r.bank.Question(in.QuestionID)
	if err != nil {
		return store.AttemptEvent{}, err
	}
	if _, err := scoring.Attribute(q, in.ChosenOption); err != nil {
		return store.AttemptEvent{}, err
	}
	if _, err := r.learners.Get(ctx, in.LearnerID); err != nil {
		return store.AttemptEvent{}, err
	}

	unlock := r.locks.Lock(in.LearnerID)
	defer unlock()
	return r.append(ctx, in)
}

// RecordExam appends one event per answered exam question, all stamped
// with at. Unanswered questions produce no event. Answers are validated
// before anything is written.
func (r *Recorder) RecordExam(ctx context.Context, learnerID string, questions []exam.Question, answers map[string]int, at time.Time) ([]store.AttemptEvent, error) {
	if learnerID == "" {
		return nil, ErrMissingLearner
	}
	if _, err := r.learners.Get(ctx, learnerID); err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = r.now()
	}

	var inputs []AttemptInput
	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("%w: %q", exam.ErrDuplicateQuestion, q.ID)
		}
		seen[q.ID] = struct{}{}
		chosen, ok := answers[q.ID]
		if !ok {
			continue
		}
		if _, err := scoring.Attribute(q.Question, chosen); err != nil {
			return nil, err
		}
		inputs = append(inputs, AttemptInput{
			LearnerID:    learnerID,
			QuestionID:   q.ID,
			ChosenOption: chosen,
			Timestamp:    at,
		})
	}

	unlock := r.locks.Lock(learnerID)
	defer unlock()

	events := make([]store.AttemptEvent, 0, len(inputs))
	for _, in := range inputs {
		ev, err := r.append(ctx, in)
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	r.logger.Info("exam recorded", "learner", learnerID, "answered", len(events), "questions", len(questions))
	return events, nil
}

func (r *Recorder) append(ctx context.Context, in AttemptInput) (store.AttemptEvent, error) {
	if in.Timestamp.IsZero() {
		in.Timestamp = r.now()
	}
	ev, err := r.events.AppendAttempt(ctx, store.AttemptEventData{
		ID:           in.ID,
		LearnerID:    in.LearnerID,
		QuestionID:   in.QuestionID,
		ChosenOption: in.ChosenOption,
		Timestamp:    in.Timestamp,
	})
	if err != nil {
		return store.AttemptEvent{}, fmt.Errorf("record attempt: %w", err)
	}
	r.logger.Debug("attempt recorded", "learner", ev.LearnerID, "question", ev.QuestionID, "sequence", ev.Sequence)
	return ev, nil
}
