package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const snapshotTable = "mastery_snapshots"

// snapshotRepo implements SnapshotRepo with the fold stored as a JSON column.
type snapshotRepo struct {
	db      *sql.DB
	dialect string
}

func (r *snapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("marshal snapshot data: %w", err)
	}
	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	d := entsql.Dialect(r.dialect)
	// A fold recomputed at the same sequence replaces the earlier one.
	del, delArgs := d.Delete(snapshotTable).
		Where(entsql.And(
			entsql.EQ("learner_id", snap.LearnerID),
			entsql.EQ("sequence", snap.Sequence),
		)).
		Query()
	ins, insArgs := d.Insert(snapshotTable).
		Columns("learner_id", "sequence", "watermark_at", "created_at", "data").
		Values(snap.LearnerID, snap.Sequence, toMicros(snap.Watermark), toMicros(createdAt), string(data)).
		Query()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.ExecContext(ctx, del, delArgs...); err != nil {
		tx.Rollback()
		return fmt.Errorf("replace snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, ins, insArgs...); err != nil {
		tx.Rollback()
		return fmt.Errorf("save snapshot: %w", err)
	}
	return tx.Commit()
}

func (r *snapshotRepo) Latest(ctx context.Context, learnerID string) (*Snapshot, error) {
	d := entsql.Dialect(r.dialect)
	query, args := d.Select("learner_id", "sequence", "watermark_at", "created_at", "data").
		From(d.Table(snapshotTable)).
		Where(entsql.EQ("learner_id", learnerID)).
		OrderBy(entsql.Desc("sequence")).
		Limit(1).
		Query()

	var (
		snap                 Snapshot
		watermark, createdAt int64
		raw                  string
	)
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&snap.LearnerID, &snap.Sequence, &watermark, &createdAt, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &snap.Data); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot data: %w", err)
	}
	snap.Watermark = fromMicros(watermark)
	snap.CreatedAt = fromMicros(createdAt)
	return &snap, nil
}

func (r *snapshotRepo) Delete(ctx context.Context, learnerID string) error {
	query, args := entsql.Dialect(r.dialect).
		Delete(snapshotTable).
		Where(entsql.EQ("learner_id", learnerID)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}
	return nil
}

func (r *snapshotRepo) Prune(ctx context.Context, learnerID string, keep int) error {
	// Find the threshold: the sequence of the (keep+1)th most recent snapshot.
	d := entsql.Dialect(r.dialect)
	query, args := d.Select("sequence").
		From(d.Table(snapshotTable)).
		Where(entsql.EQ("learner_id", learnerID)).
		OrderBy(entsql.Desc("sequence")).
		Offset(keep).
		Limit(1).
		Query()

	var threshold int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&threshold)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // fewer than keep snapshots exist
	}
	if err != nil {
		return fmt.Errorf("query snapshots for prune: %w", err)
	}

	del, delArgs := d.Delete(snapshotTable).
		Where(entsql.And(
			entsql.EQ("learner_id", learnerID),
			entsql.LTE("sequence", threshold),
		)).
		Query()
	if _, err := r.db.ExecContext(ctx, del, delArgs...); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
