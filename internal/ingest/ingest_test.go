package ingest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/skilltrace/internal/curriculum/curriculumtest"
	"github.com/abhisek/skilltrace/internal/exam"
	"github.com/abhisek/skilltrace/internal/questionbank"
	"github.com/abhisek/skilltrace/internal/scoring"
	"github.com/abhisek/skilltrace/internal/store"
	"github.com/abhisek/skilltrace/internal/store/storetest"
)

func newTestRecorder(t *testing.T) (*Recorder, *store.Store, *questionbank.Bank) {
	t.Helper()
	cat := curriculumtest.Catalog(t)
	st := storetest.Open(t)
	storetest.Learner(t, st, "kid", "Kid", 3)
	r := NewRecorder(cat.Bank, st.EventRepo(), st.LearnerRepo(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return r, st, cat.Bank
}

func TestRecord(t *testing.T) {
	r, st, _ := newTestRecorder(t)
	ctx := context.Background()

	ev, err := r.Record(ctx, AttemptInput{LearnerID: "kid", QuestionID: "pv-1", ChosenOption: 1, Timestamp: storetest.BaseTime})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "pv-1", ev.QuestionID)
	assert.True(t, ev.Timestamp.Equal(storetest.BaseTime))

	events, err := st.EventRepo().LearnerAttempts(ctx, "kid", store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ev.Sequence, events[0].Sequence)
}

func TestRecord_Validation(t *testing.T) {
	r, _, _ := newTestRecorder(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   AttemptInput
		want error
	}{
		{"missing learner", AttemptInput{QuestionID: "pv-1"}, ErrMissingLearner},
		{"unknown learner", AttemptInput{LearnerID: "ghost", QuestionID: "pv-1"}, store.ErrLearnerNotFound},
		{"unknown question", AttemptInput{LearnerID: "kid", QuestionID: "nope"}, questionbank.ErrUnknownQuestion},
		{"negative option", AttemptInput{LearnerID: "kid", QuestionID: "pv-1", ChosenOption: -1}, scoring.ErrOptionOutOfRange},
		{"option past end", AttemptInput{LearnerID: "kid", QuestionID: "pv-1", ChosenOption: 4}, scoring.ErrOptionOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Record(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRecord_Idempotent(t *testing.T) {
	r, st, _ := newTestRecorder(t)
	ctx := context.Background()

	in := AttemptInput{ID: "evt-1", LearnerID: "kid", QuestionID: "add-1", ChosenOption: 0}
	first, err := r.Record(ctx, in)
	require.NoError(t, err)
	second, err := r.Record(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.Sequence, second.Sequence)

	events, err := st.EventRepo().LearnerAttempts(ctx, "kid", store.QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRecord_ConcurrentSameLearner(t *testing.T) {
	r, st, _ := newTestRecorder(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Record(ctx, AttemptInput{
				LearnerID:    "kid",
				QuestionID:   "pv-2",
				ChosenOption: i % 4,
				Timestamp:    storetest.BaseTime.Add(time.Duration(i) * time.Second),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	events, err := st.EventRepo().LearnerAttempts(ctx, "kid", store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, n)
	seen := make(map[int64]bool)
	for _, ev := range events {
		assert.False(t, seen[ev.Sequence], "duplicate sequence %d", ev.Sequence)
		seen[ev.Sequence] = true
	}
}

func TestRecordExam(t *testing.T) {
	r, st, bank := newTestRecorder(t)
	ctx := context.Background()

	questions, err := exam.Rebuild(bank, []string{"pv-1", "pv-2", "add-1"})
	require.NoError(t, err)

	events, err := r.RecordExam(ctx, "kid", questions, map[string]int{"pv-1": 0, "add-1": 2, "elsewhere": 1}, storetest.BaseTime)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "pv-1", events[0].QuestionID)
	assert.Equal(t, "add-1", events[1].QuestionID)
	assert.Less(t, events[0].Sequence, events[1].Sequence)

	stored, err := st.EventRepo().LearnerAttempts(ctx, "kid", store.QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestRecordExam_InvalidAnswerWritesNothing(t *testing.T) {
	r, st, bank := newTestRecorder(t)
	ctx := context.Background()

	questions, err := exam.Rebuild(bank, []string{"pv-1", "pv-2"})
	require.NoError(t, err)

	_, err = r.RecordExam(ctx, "kid", questions, map[string]int{"pv-1": 0, "pv-2": 9}, storetest.BaseTime)
	assert.ErrorIs(t, err, scoring.ErrOptionOutOfRange)

	stored, err := st.EventRepo().LearnerAttempts(ctx, "kid", store.QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRecordExam_RepeatedQuestionWritesNothing(t *testing.T) {
	r, st, bank := newTestRecorder(t)
	ctx := context.Background()

	q, err := bank.Question("pv-1")
	require.NoError(t, err)
	questions := []exam.Question{{Question: q}, {Question: q}, {Question: q}}

	_, err = r.RecordExam(ctx, "kid", questions, map[string]int{"pv-1": 0}, storetest.BaseTime)
	assert.ErrorIs(t, err, exam.ErrDuplicateQuestion)

	stored, err := st.EventRepo().LearnerAttempts(ctx, "kid", store.QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}
