package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(context.Background(), DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x")
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("err = %v, want ErrUnsupportedDriver", err)
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestSchemaCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{"learners", "attempt_events", "mastery_snapshots", "llm_request_events", "global_sequence"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := s.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	// Should be monotonically increasing starting from 1.
	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}
}

func TestSequenceCounter_SurvivesReseed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.seq.Next(ctx); err != nil {
		t.Fatal(err)
	}
	sc, err := newSequenceCounter(ctx, s.DB())
	if err != nil {
		t.Fatalf("new sequence counter: %v", err)
	}
	seq, err := sc.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if seq != 2 {
		t.Errorf("seq = %d, want 2 (reseeding must not reset the counter)", seq)
	}
}

func TestAppendAttempt_OrderedByTimestamp(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	// Appended out of time order; the log returns them by timestamp.
	for i, offset := range []int{2, 0, 1} {
		_, err := repo.AppendAttempt(ctx, AttemptEventData{
			LearnerID:    "kid-1",
			QuestionID:   fmt.Sprintf("q%d", i),
			ChosenOption: i,
			Timestamp:    base.Add(time.Duration(offset) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if _, err := repo.AppendAttempt(ctx, AttemptEventData{LearnerID: "kid-2", QuestionID: "q9", Timestamp: base}); err != nil {
		t.Fatal(err)
	}

	events, err := repo.LearnerAttempts(ctx, "kid-1", QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	want := []string{"q1", "q2", "q0"}
	for i, ev := range events {
		if ev.QuestionID != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, ev.QuestionID, want[i])
		}
		if ev.ID == "" || ev.Sequence == 0 {
			t.Errorf("event[%d] missing id or sequence: %+v", i, ev)
		}
	}
	if !events[0].Timestamp.Equal(base) {
		t.Errorf("timestamp = %v, want %v", events[0].Timestamp, base)
	}
}

func TestLearnerAttempts_Filters(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	var seqs []int64
	for day := 0; day < 5; day++ {
		ev, err := repo.AppendAttempt(ctx, AttemptEventData{
			LearnerID:  "kid",
			QuestionID: "q",
			Timestamp:  base.AddDate(0, 0, day),
		})
		if err != nil {
			t.Fatal(err)
		}
		seqs = append(seqs, ev.Sequence)
	}

	tests := []struct {
		name string
		opts QueryOpts
		want int
	}{
		{"all", QueryOpts{}, 5},
		{"after sequence", QueryOpts{After: seqs[2]}, 2},
		{"time window", QueryOpts{From: base.AddDate(0, 0, 1), To: base.AddDate(0, 0, 3)}, 2},
		{"limit", QueryOpts{Limit: 3}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := repo.LearnerAttempts(ctx, "kid", tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(events) != tt.want {
				t.Errorf("got %d events, want %d", len(events), tt.want)
			}
		})
	}

	latest, err := repo.LatestSequence(ctx, "kid")
	if err != nil {
		t.Fatal(err)
	}
	if latest != seqs[4] {
		t.Errorf("LatestSequence = %d, want %d", latest, seqs[4])
	}
	none, err := repo.LatestSequence(ctx, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if none != 0 {
		t.Errorf("LatestSequence(nobody) = %d, want 0", none)
	}
}

func TestAppendAttempt_IdempotentOnEventID(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	data := AttemptEventData{ID: "evt-1", LearnerID: "kid", QuestionID: "q1", ChosenOption: 2, Timestamp: time.Now()}
	first, err := repo.AppendAttempt(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	second, err := repo.AppendAttempt(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	if first.Sequence != second.Sequence {
		t.Errorf("retry appended a new event: %d vs %d", first.Sequence, second.Sequence)
	}
	events, _ := repo.LearnerAttempts(ctx, "kid", QueryOpts{})
	if len(events) != 1 {
		t.Errorf("got %d events, want 1", len(events))
	}
}

func TestAppendAttempt_Concurrent(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.AppendAttempt(ctx, AttemptEventData{LearnerID: fmt.Sprintf("kid-%d", i%4), QuestionID: "q"})
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("append: %v", err)
	}

	total := 0
	for k := 0; k < 4; k++ {
		events, err := repo.LearnerAttempts(ctx, fmt.Sprintf("kid-%d", k), QueryOpts{})
		if err != nil {
			t.Fatal(err)
		}
		total += len(events)
	}
	if total != 20 {
		t.Errorf("got %d events, want 20", total)
	}
}

func TestAppendLLMRequest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	err := s.EventRepo().AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "mock", Model: "m", Purpose: "insights", InputTokens: 10, OutputTokens: 5, Success: true,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM llm_request_events").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestLearnerRepo(t *testing.T) {
	s := openTestStore(t)
	repo := s.LearnerRepo()
	ctx := context.Background()

	if list, err := repo.List(ctx); err != nil || len(list) != 0 {
		t.Fatalf("List (empty) = %v, %v", list, err)
	}

	ada, err := repo.Create(ctx, Learner{ID: "ada", Name: "Ada", YearLevel: 3, CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	gen, err := repo.Create(ctx, Learner{Name: "Grace", YearLevel: 5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if gen.ID == "" {
		t.Error("expected generated ID")
	}

	if _, err := repo.Create(ctx, Learner{ID: "ada", Name: "Again"}); !errors.Is(err, ErrLearnerExists) {
		t.Errorf("duplicate create err = %v, want ErrLearnerExists", err)
	}

	got, err := repo.Get(ctx, "ada")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != ada {
		t.Errorf("Get = %+v, want %+v", got, ada)
	}

	if _, err := repo.Get(ctx, "nobody"); !errors.Is(err, ErrLearnerNotFound) {
		t.Errorf("err = %v, want ErrLearnerNotFound", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "ada" {
		t.Errorf("List = %+v", list)
	}
}

func TestSnapshotSaveAndLatest(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	// No snapshot yet.
	snap, err := repo.Latest(ctx, "kid")
	if err != nil {
		t.Fatalf("latest (empty): %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil snapshot when none exist")
	}

	watermark := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err = repo.Save(ctx, &Snapshot{
		LearnerID: "kid",
		Sequence:  42,
		Watermark: watermark,
		Data: SnapshotData{
			Version: 1,
			Tallies: map[string]TallyData{"addition": {Correct: 3, Total: 4}},
			Events:  4,
		},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	snap, err = repo.Latest(ctx, "kid")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap == nil {
		t.Fatal("expected non-nil snapshot")
	}
	if snap.Sequence != 42 {
		t.Errorf("sequence = %d, want 42", snap.Sequence)
	}
	if !snap.Watermark.Equal(watermark) {
		t.Errorf("watermark = %v, want %v", snap.Watermark, watermark)
	}
	if snap.Data.Tallies["addition"] != (TallyData{Correct: 3, Total: 4}) {
		t.Errorf("tallies = %+v", snap.Data.Tallies)
	}

	other, err := repo.Latest(ctx, "someone-else")
	if err != nil || other != nil {
		t.Errorf("Latest(other) = %v, %v; want nil, nil", other, err)
	}
}

func TestSnapshotSave_ReplacesSameSequence(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	for _, events := range []int{1, 2} {
		if err := repo.Save(ctx, &Snapshot{LearnerID: "kid", Sequence: 5, Data: SnapshotData{Events: events}}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	snap, err := repo.Latest(ctx, "kid")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Data.Events != 2 {
		t.Errorf("events = %d, want 2", snap.Data.Events)
	}
}

func TestSnapshotPruneAndDelete(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if err := repo.Save(ctx, &Snapshot{LearnerID: "kid", Sequence: int64(i + 1)}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	if err := repo.Save(ctx, &Snapshot{LearnerID: "other", Sequence: 1}); err != nil {
		t.Fatal(err)
	}

	if err := repo.Prune(ctx, "kid", 5); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if got := countSnapshots(t, s, "kid"); got != 5 {
		t.Errorf("remaining snapshots = %d, want 5", got)
	}

	// Prune with keep above the count is a no-op.
	if err := repo.Prune(ctx, "kid", 10); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if got := countSnapshots(t, s, "kid"); got != 5 {
		t.Errorf("remaining snapshots = %d, want 5", got)
	}

	snap, err := repo.Latest(ctx, "kid")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Sequence != 7 {
		t.Errorf("latest sequence = %d, want 7", snap.Sequence)
	}

	if err := repo.Delete(ctx, "kid"); err != nil {
		t.Fatal(err)
	}
	if got := countSnapshots(t, s, "kid"); got != 0 {
		t.Errorf("snapshots after delete = %d, want 0", got)
	}
	if got := countSnapshots(t, s, "other"); got != 1 {
		t.Errorf("other learner snapshots = %d, want 1", got)
	}
}

func countSnapshots(t *testing.T, s *Store, learnerID string) int {
	t.Helper()
	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM mastery_snapshots WHERE learner_id = ?", learnerID).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}
