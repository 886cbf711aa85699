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

const learnerTable = "learners"

type learnerRepo struct {
	db      *sql.DB
	dialect string
}

func (r *learnerRepo) Create(ctx context.Context, l Learner) (Learner, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	} else if _, err := r.Get(ctx, l.ID); err == nil {
		return Learner{}, fmt.Errorf("%w: %q", ErrLearnerExists, l.ID)
	} else if !errors.Is(err, ErrLearnerNotFound) {
		return Learner{}, err
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	l.CreatedAt = fromMicros(toMicros(l.CreatedAt))

	query, args := entsql.Dialect(r.dialect).
		Insert(learnerTable).
		Columns("id", "name", "year_level", "created_at").
		Values(l.ID, l.Name, l.YearLevel, toMicros(l.CreatedAt)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return Learner{}, fmt.Errorf("save learner: %w", err)
	}
	return l, nil
}

func (r *learnerRepo) Get(ctx context.Context, id string) (Learner, error) {
	d := entsql.Dialect(r.dialect)
	query, args := d.Select("id", "name", "year_level", "created_at").
		From(d.Table(learnerTable)).
		Where(entsql.EQ("id", id)).
		Query()

	l, err := scanLearner(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Learner{}, fmt.Errorf("%w: %q", ErrLearnerNotFound, id)
	}
	if err != nil {
		return Learner{}, fmt.Errorf("query learner: %w", err)
	}
	return l, nil
}

func (r *learnerRepo) List(ctx context.Context) ([]Learner, error) {
	d := entsql.Dialect(r.dialect)
	query, args := d.Select("id", "name", "year_level", "created_at").
		From(d.Table(learnerTable)).
		OrderBy("created_at", "id").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query learners: %w", err)
	}
	defer rows.Close()

	learners := []Learner{}
	for rows.Next() {
		l, err := scanLearner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan learner: %w", err)
		}
		learners = append(learners, l)
	}
	return learners, rows.Err()
}

func scanLearner(row rowScanner) (Learner, error) {
	var (
		l         Learner
		createdAt int64
	)
	if err := row.Scan(&l.ID, &l.Name, &l.YearLevel, &createdAt); err != nil {
		return Learner{}, err
	}
	l.CreatedAt = fromMicros(createdAt)
	return l, nil
}
