package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLearnerNotFound = errors.New("learner not found")
	ErrLearnerExists   = errors.New("learner already exists")
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit int       // max results (0 = unlimited)
	After int64     // sequence > After
	From  time.Time // timestamp >= From
	To    time.Time // timestamp < To
}

// AttemptEvent is one answered question in a learner's history. Events are
// append-only: once written they are never updated or deleted.
type AttemptEvent struct {
	ID           string    `json:"id"`
	Sequence     int64     `json:"sequence"`
	LearnerID    string    `json:"learnerId"`
	QuestionID   string    `json:"questionId"`
	ChosenOption int       `json:"chosenOption"`
	Timestamp    time.Time `json:"timestamp"`
}

// AttemptEventData is the input for appending an attempt. An empty ID is
// replaced by a fresh UUID; a repeated ID returns the stored event.
type AttemptEventData struct {
	ID           string
	LearnerID    string
	QuestionID   string
	ChosenOption int
	Timestamp    time.Time
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// EventRepo provides append and query access to the event log.
type EventRepo interface {
	// AppendAttempt records an answered question.
	AppendAttempt(ctx context.Context, data AttemptEventData) (AttemptEvent, error)

	// LearnerAttempts returns a learner's attempts ordered by timestamp,
	// then sequence.
	LearnerAttempts(ctx context.Context, learnerID string, opts QueryOpts) ([]AttemptEvent, error)

	// LatestSequence returns the highest attempt sequence for a learner, or 0.
	LatestSequence(ctx context.Context, learnerID string) (int64, error)

	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
}

// Learner is a child profile.
type Learner struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	YearLevel int       `json:"yearLevel"`
	CreatedAt time.Time `json:"createdAt"`
}

// LearnerRepo manages learner profiles.
type LearnerRepo interface {
	Create(ctx context.Context, l Learner) (Learner, error)
	Get(ctx context.Context, id string) (Learner, error)
	List(ctx context.Context) ([]Learner, error)
}

// TallyData is the persisted per-token attempt count.
type TallyData struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// SnapshotData is the memoized mastery fold for one learner.
type SnapshotData struct {
	Version int                  `json:"version"`
	Tallies map[string]TallyData `json:"tallies"`
	Events  int                  `json:"events"`
	Skipped int                  `json:"skipped"`
}

// Snapshot is a point-in-time capture of a learner's mastery fold. Sequence
// and Watermark identify the last event folded in.
type Snapshot struct {
	LearnerID string
	Sequence  int64
	Watermark time.Time
	CreatedAt time.Time
	Data      SnapshotData
}

// SnapshotRepo manages mastery snapshots.
type SnapshotRepo interface {
	// Save stores a new snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot for a learner, or nil if none exist.
	Latest(ctx context.Context, learnerID string) (*Snapshot, error)

	// Delete removes every snapshot of a learner.
	Delete(ctx context.Context, learnerID string) error

	// Prune deletes all but the N most recent snapshots of a learner.
	Prune(ctx context.Context, learnerID string, keep int) error
}

func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}
