// Package storetest opens throwaway in-memory stores for tests.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/skilltrace/internal/store"
)

// BaseTime is the reference instant used by Attempt.
var BaseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// Open returns an empty SQLite store private to the test.
func Open(t testing.TB) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	s, err := store.Open(context.Background(), store.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Learner creates a learner or fails the test.
func Learner(t testing.TB, s *store.Store, id, name string, yearLevel int) store.Learner {
	t.Helper()
	l, err := s.LearnerRepo().Create(context.Background(), store.Learner{ID: id, Name: name, YearLevel: yearLevel})
	if err != nil {
		t.Fatalf("create learner %s: %v", id, err)
	}
	return l
}

// Attempt appends an answer at BaseTime plus the given offset.
func Attempt(t testing.TB, s *store.Store, learnerID, questionID string, chosen int, offset time.Duration) store.AttemptEvent {
	t.Helper()
	ev, err := s.EventRepo().AppendAttempt(context.Background(), store.AttemptEventData{
		LearnerID:    learnerID,
		QuestionID:   questionID,
		ChosenOption: chosen,
		Timestamp:    BaseTime.Add(offset),
	})
	if err != nil {
		t.Fatalf("append attempt: %v", err)
	}
	return ev
}
