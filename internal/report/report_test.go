package report

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/skilltrace/internal/curriculum/curriculumtest"
	"github.com/abhisek/skilltrace/internal/diagnosis"
	"github.com/abhisek/skilltrace/internal/mastery"
	"github.com/abhisek/skilltrace/internal/progress"
	"github.com/abhisek/skilltrace/internal/store"
	"github.com/abhisek/skilltrace/internal/store/storetest"
)

const day = 24 * time.Hour

func newTestBuilder(t *testing.T) (*Builder, *store.Store) {
	t.Helper()
	cat := curriculumtest.Catalog(t)
	st := storetest.Open(t)
	storetest.Learner(t, st, "kid", "Kid", 3)
	svc := mastery.NewService(cat, st.EventRepo(), st.SnapshotRepo(), mastery.DefaultConfig(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	b := NewBuilder(cat, st.LearnerRepo(), st.EventRepo(), svc, diagnosis.NewDetector(cat, svc), time.UTC)
	b.now = func() time.Time { return storetest.BaseTime.Add(2*day + time.Hour) }
	return b, st
}

func seedHistory(t *testing.T, st *store.Store) {
	t.Helper()
	storetest.Attempt(t, st, "kid", "sub-1", 0, -10*day)
	storetest.Attempt(t, st, "kid", "pv-1", 0, 0)
	storetest.Attempt(t, st, "kid", "pv-2", 0, time.Minute)
	storetest.Attempt(t, st, "kid", "pv-3", 0, 2*time.Minute)
	storetest.Attempt(t, st, "kid", "add-1", 2, day)
	storetest.Attempt(t, st, "kid", "add-2", 0, day+time.Minute)
	storetest.Attempt(t, st, "kid", "add-3", 2, day+2*time.Minute)
	storetest.Attempt(t, st, "kid", "frac-1", 1, 2*day)
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"", PeriodWeek, false},
		{"week", PeriodWeek, false},
		{"month", PeriodMonth, false},
		{"all", PeriodAll, false},
		{"year", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePeriod(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidPeriod, "ParsePeriod(%q)", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), PeriodWeek.Start(now, time.UTC))
	assert.Equal(t, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), PeriodMonth.Start(now, time.UTC))
	assert.True(t, PeriodAll.Start(now, time.UTC).IsZero())
}

func TestParentReport_Week(t *testing.T) {
	b, st := newTestBuilder(t)
	seedHistory(t, st)

	rep, err := b.ParentReport(context.Background(), "kid", PeriodWeek)
	require.NoError(t, err)

	assert.Equal(t, "Kid", rep.Learner.Name)
	assert.Equal(t, Summary{
		QuestionsAttempted: 7,
		QuestionsCorrect:   4,
		Accuracy:           57,
		ActiveDays:         3,
		CurrentStreak:      3,
	}, rep.Summary)

	require.Len(t, rep.Strengths, 1)
	assert.Equal(t, Strength{Concept: "place-value", Name: "Place value", MasteryScore: 100}, rep.Strengths[0])

	var focus []string
	for _, w := range rep.Focus {
		focus = append(focus, w.Concept)
	}
	assert.Equal(t, []string{"bigger-denominator", "addition", "subtraction"}, focus)

	var sections []string
	for _, s := range rep.RecommendedSections {
		sections = append(sections, s.SectionID)
	}
	assert.Equal(t, []string{"add-2digit", "sub-2digit", "unit-fractions-sec"}, sections)
	assert.Equal(t, []string{"subtraction"}, rep.RecommendedSections[1].Concepts)

	assert.Equal(t, []Achievement{
		{Kind: AchievementMastered, Title: "Mastered Place value"},
		{Kind: AchievementStreak, Title: "3-day practice streak"},
	}, rep.Achievements)

	require.Len(t, rep.ErrorPatterns, 1)
	assert.Equal(t, "addition", rep.ErrorPatterns[0].TokenID)
}

func TestParentReport_AllTime(t *testing.T) {
	b, st := newTestBuilder(t)
	seedHistory(t, st)

	rep, err := b.ParentReport(context.Background(), "kid", PeriodAll)
	require.NoError(t, err)
	assert.True(t, rep.From.IsZero())
	assert.Equal(t, 8, rep.Summary.QuestionsAttempted)
	assert.Equal(t, 5, rep.Summary.QuestionsCorrect)
	assert.Equal(t, 4, rep.Summary.ActiveDays)
}

func TestParentReport_NoHistory(t *testing.T) {
	b, _ := newTestBuilder(t)

	rep, err := b.ParentReport(context.Background(), "kid", PeriodMonth)
	require.NoError(t, err)
	assert.Zero(t, rep.Summary.QuestionsAttempted)
	assert.Empty(t, rep.Strengths)
	assert.Empty(t, rep.Focus)
	assert.Empty(t, rep.Achievements)
	assert.NotNil(t, rep.RecommendedSections)
}

func TestParentReport_Errors(t *testing.T) {
	b, _ := newTestBuilder(t)
	ctx := context.Background()

	_, err := b.ParentReport(ctx, "kid", Period("fortnight"))
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = b.ParentReport(ctx, "ghost", PeriodWeek)
	assert.ErrorIs(t, err, store.ErrLearnerNotFound)
}

func TestAchievements(t *testing.T) {
	assert.Empty(t, achievements(nil, nil, MinStreakAchievement-1))

	subjects := []progress.Subject{
		{YearLevel: 3, Subject: "maths", Level: 2},
		{YearLevel: 3, Subject: "english", Level: 1},
	}
	records := []mastery.Record{
		{Concept: "a", Name: "Alpha", MasteryScore: 90, Confident: false},
		{Concept: "b", Name: "Beta", MasteryScore: 80, Confident: true},
	}
	assert.Equal(t, []Achievement{
		{Kind: AchievementMastered, Title: "Mastered Beta"},
		{Kind: AchievementLevel, Title: "Reached level 2 in Year 3 Maths"},
	}, achievements(records, subjects, 0))
}
