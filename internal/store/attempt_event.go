package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

const attemptTable = "attempt_events"

var attemptColumns = []string{"event_id", "sequence", "learner_id", "question_id", "chosen_option", "occurred_at"}

// eventRepo implements EventRepo backed by SQL and the global sequence counter.
type eventRepo struct {
	db      *sql.DB
	dialect string
	seq     *sequenceCounter
}

func (r *eventRepo) AppendAttempt(ctx context.Context, data AttemptEventData) (AttemptEvent, error) {
	if data.ID == "" {
		data.ID = uuid.NewString()
	} else if existing, err := r.attemptByID(ctx, data.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return AttemptEvent{}, fmt.Errorf("lookup attempt %s: %w", data.ID, err)
	}
	if data.Timestamp.IsZero() {
		data.Timestamp = time.Now()
	}

	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return AttemptEvent{}, fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(r.dialect).
		Insert(attemptTable).
		Columns("sequence", "event_id", "learner_id", "question_id", "chosen_option", "occurred_at", "recorded_at").
		Values(seqNum, data.ID, data.LearnerID, data.QuestionID, data.ChosenOption,
			toMicros(data.Timestamp), toMicros(time.Now())).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return AttemptEvent{}, fmt.Errorf("save attempt event: %w", err)
	}

	return AttemptEvent{
		ID:           data.ID,
		Sequence:     seqNum,
		LearnerID:    data.LearnerID,
		QuestionID:   data.QuestionID,
		ChosenOption: data.ChosenOption,
		Timestamp:    fromMicros(toMicros(data.Timestamp)),
	}, nil
}

func (r *eventRepo) attemptByID(ctx context.Context, id string) (AttemptEvent, error) {
	d := entsql.Dialect(r.dialect)
	query, args := d.Select(attemptColumns...).
		From(d.Table(attemptTable)).
		Where(entsql.EQ("event_id", id)).
		Query()
	return scanAttempt(r.db.QueryRowContext(ctx, query, args...))
}

func (r *eventRepo) LearnerAttempts(ctx context.Context, learnerID string, opts QueryOpts) ([]AttemptEvent, error) {
	preds := []*entsql.Predicate{entsql.EQ("learner_id", learnerID)}
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("occurred_at", toMicros(opts.From)))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LT("occurred_at", toMicros(opts.To)))
	}

	d := entsql.Dialect(r.dialect)
	sel := d.Select(attemptColumns...).
		From(d.Table(attemptTable)).
		Where(entsql.And(preds...)).
		OrderBy("occurred_at", "sequence")
	if opts.Limit > 0 {
		sel = sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var events []AttemptEvent
	for rows.Next() {
		ev, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *eventRepo) LatestSequence(ctx context.Context, learnerID string) (int64, error) {
	d := entsql.Dialect(r.dialect)
	query, args := d.Select(entsql.Max("sequence")).
		From(d.Table(attemptTable)).
		Where(entsql.EQ("learner_id", learnerID)).
		Query()

	var seq sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query latest sequence: %w", err)
	}
	return seq.Int64, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (AttemptEvent, error) {
	var (
		ev         AttemptEvent
		occurredAt int64
	)
	if err := row.Scan(&ev.ID, &ev.Sequence, &ev.LearnerID, &ev.QuestionID, &ev.ChosenOption, &occurredAt); err != nil {
		return AttemptEvent{}, err
	}
	ev.Timestamp = fromMicros(occurredAt)
	return ev, nil
}
