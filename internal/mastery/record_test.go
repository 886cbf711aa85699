package mastery

import (
	"context"
	"testing"

	"github.com/abhisek/skilltrace/internal/curriculum/curriculumtest"
	"github.com/abhisek/skilltrace/internal/store"
)

// answer repeats a question n times with the given option.
func answer(h *fakeHistory, learner, question string, option, n int, minute *int) {
	for i := 0; i < n; i++ {
		h.add(learner, question, option, *minute)
		*minute++
	}
}

func TestRecords_RawScoreAndPrerequisiteCap(t *testing.T) {
	cat := curriculumtest.Catalog(t)
	h := &fakeHistory{}
	m := 0
	answer(h, "kid", "pv-1", 0, 3, &m)   // place-value correct x3
	answer(h, "kid", "pv-2", 2, 7, &m)   // place-value wrong x7
	answer(h, "kid", "add-1", 0, 9, &m)  // addition correct x9
	answer(h, "kid", "add-2", 2, 1, &m)  // addition wrong x1
	answer(h, "kid", "sub-1", 0, 2, &m)  // subtraction correct x2
	answer(h, "kid", "frac-1", 0, 1, &m) // unit-fractions correct x1
	answer(h, "kid", "frac-2", 1, 2, &m) // bigger-denominator x2

	events, _ := h.LearnerAttempts(context.Background(), "kid", store.QueryOpts{})
	p := Replay(events, cat.Bank)
	recs := Index(Records(p, cat.Graph, DefaultMinAttempts))

	tests := []struct {
		concept        string
		raw, reported  int
		correct, total int
		cappedBy       string
		confident      bool
	}{
		{"place-value", 30, 30, 3, 10, "", true},
		{"addition", 90, 30, 9, 10, "place-value", true},
		{"subtraction", 100, 30, 2, 2, "addition", false},
		{"unit-fractions", 100, 100, 1, 1, "", false},
		{"bigger-denominator", 0, 0, 0, 2, "", false},
	}
	for _, tt := range tests {
		r, ok := recs[tt.concept]
		if !ok {
			t.Errorf("no record for %s", tt.concept)
			continue
		}
		if r.RawScore != tt.raw || r.MasteryScore != tt.reported {
			t.Errorf("%s: raw=%d reported=%d, want raw=%d reported=%d", tt.concept, r.RawScore, r.MasteryScore, tt.raw, tt.reported)
		}
		if r.CorrectAttempts != tt.correct || r.TotalAttempts != tt.total {
			t.Errorf("%s: attempts=%d/%d, want %d/%d", tt.concept, r.CorrectAttempts, r.TotalAttempts, tt.correct, tt.total)
		}
		if r.CappedBy != tt.cappedBy {
			t.Errorf("%s: CappedBy = %q, want %q", tt.concept, r.CappedBy, tt.cappedBy)
		}
		if r.Confident != tt.confident {
			t.Errorf("%s: Confident = %v, want %v", tt.concept, r.Confident, tt.confident)
		}
	}

	if _, ok := recs["counting"]; ok {
		t.Error("unattempted token should have no record")
	}
	if len(recs) != 5 {
		t.Errorf("got %d records, want 5", len(recs))
	}
}

func TestRecords_TopologicalOrder(t *testing.T) {
	cat := curriculumtest.Catalog(t)
	h := &fakeHistory{}
	m := 0
	answer(h, "kid", "sub-1", 0, 1, &m)
	answer(h, "kid", "add-1", 0, 1, &m)
	answer(h, "kid", "pv-1", 0, 1, &m)

	events, _ := h.LearnerAttempts(context.Background(), "kid", store.QueryOpts{})
	recs := Records(Replay(events, cat.Bank), cat.Graph, DefaultMinAttempts)
	want := []string{"place-value", "addition", "subtraction"}
	if len(recs) != len(want) {
		t.Fatalf("got %d records, want %d", len(recs), len(want))
	}
	for i := range want {
		if recs[i].Concept != want[i] {
			t.Errorf("record[%d] = %s, want %s", i, recs[i].Concept, want[i])
		}
	}
}

func TestRecords_UnattemptedPrerequisiteDoesNotLimit(t *testing.T) {
	cat := curriculumtest.Catalog(t)
	h := &fakeHistory{}
	m := 0
	// place-value is weak, addition is never attempted, subtraction is perfect.
	answer(h, "kid", "pv-1", 2, 4, &m)
	answer(h, "kid", "sub-1", 0, 4, &m)

	events, _ := h.LearnerAttempts(context.Background(), "kid", store.QueryOpts{})
	recs := Index(Records(Replay(events, cat.Bank), cat.Graph, DefaultMinAttempts))
	if got := recs["subtraction"].MasteryScore; got != 100 {
		t.Errorf("subtraction = %d, want 100", got)
	}
	if got := recs["place-value"].MasteryScore; got != 0 {
		t.Errorf("place-value = %d, want 0", got)
	}
}

func TestRecords_ConfidenceThresholdIsTunable(t *testing.T) {
	cat := curriculumtest.Catalog(t)
	h := &fakeHistory{}
	m := 0
	answer(h, "kid", "pv-1", 0, 1, &m)
	events, _ := h.LearnerAttempts(context.Background(), "kid", store.QueryOpts{})
	p := Replay(events, cat.Bank)

	if r := Records(p, cat.Graph, 1)[0]; !r.Confident {
		t.Error("1 attempt should be confident with threshold 1")
	}
	if r := Records(p, cat.Graph, 5)[0]; r.Confident || r.MasteryScore != 100 {
		t.Errorf("record = %+v, want score 100 and not confident", r)
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score int
		want  Level
	}{
		{0, LevelEmerging},
		{59, LevelEmerging},
		{60, LevelDeveloping},
		{79, LevelDeveloping},
		{80, LevelMastered},
		{100, LevelMastered},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.score); got != tt.want {
			t.Errorf("LevelFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
