package progress

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/abhisek/skilltrace/internal/curriculum/curriculumtest"
	"github.com/abhisek/skilltrace/internal/store"
)

var now = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func answerAt(daysAgo int, correct bool) Answer {
	return Answer{
		QuestionID: "q",
		YearLevel:  3,
		Subject:    "maths",
		Correct:    correct,
		Timestamp:  now.AddDate(0, 0, -daysAgo),
	}
}

func TestGrade(t *testing.T) {
	cat := curriculumtest.Catalog(t)
	events := []store.AttemptEvent{
		{QuestionID: "pv-1", ChosenOption: 0, Timestamp: now},
		{QuestionID: "add-2", ChosenOption: 3, Timestamp: now},
		{QuestionID: "retired", ChosenOption: 0, Timestamp: now},
		{QuestionID: "pv-2", ChosenOption: 7, Timestamp: now},
	}
	got := Grade(events, cat.Bank)
	if len(got) != 2 {
		t.Fatalf("len(Grade) = %d, want 2", len(got))
	}
	if !got[0].Correct || got[0].SectionID != "pv-basics" || got[0].YearLevel != 3 || got[0].Subject != "maths" {
		t.Errorf("Grade[0] = %+v, want correct pv-basics answer in year 3 maths", got[0])
	}
	if got[1].Correct || got[1].SectionID != "add-2digit" {
		t.Errorf("Grade[1] = %+v, want wrong add-2digit answer", got[1])
	}
}

func TestDailyStats(t *testing.T) {
	answers := []Answer{
		answerAt(0, true),
		answerAt(0, false),
		answerAt(0, true),
		answerAt(2, true),
		answerAt(9, true), // outside the window
	}
	got, err := DailyStats(answers, 3, now, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Day{
		{Date: "2026-03-08", QuestionsAttempted: 1, QuestionsCorrect: 1, Accuracy: 100},
		{Date: "2026-03-09"},
		{Date: "2026-03-10", QuestionsAttempted: 3, QuestionsCorrect: 2, Accuracy: 67},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DailyStats = %+v, want %+v", got, want)
	}
}

func TestDailyStats_InvalidDays(t *testing.T) {
	for _, days := range []int{0, -1} {
		if _, err := DailyStats(nil, days, now, time.UTC); !errors.Is(err, ErrInvalidDays) {
			t.Errorf("DailyStats(days=%d) err = %v, want ErrInvalidDays", days, err)
		}
	}
}

func TestDailyStats_Location(t *testing.T) {
	// At 15:00 UTC on the 10th it is already the 11th in Sydney.
	loc := time.FixedZone("AEDT", 11*60*60)
	a := Answer{Correct: true, Timestamp: time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)}
	got, err := DailyStats([]Answer{a}, 1, now, loc)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Date != "2026-03-11" {
		t.Errorf("Date = %q, want 2026-03-11", got[0].Date)
	}
	if got[0].QuestionsAttempted != 1 {
		t.Errorf("attempted today in %s = %d, want 1", loc, got[0].QuestionsAttempted)
	}
}

func TestCurrentStreak(t *testing.T) {
	tests := []struct {
		name    string
		daysAgo []int
		want    int
	}{
		{"no activity", nil, 0},
		{"today only", []int{0}, 1},
		{"ending yesterday", []int{1, 2, 3}, 3},
		{"gap breaks run", []int{0, 1, 3, 4}, 2},
		{"stale", []int{2, 3}, 0},
		{"repeats in a day", []int{0, 0, 1}, 2},
	}
	for _, tt := range tests {
		var answers []Answer
		for _, d := range tt.daysAgo {
			answers = append(answers, answerAt(d, true))
		}
		if got := CurrentStreak(answers, now, time.UTC); got != tt.want {
			t.Errorf("%s: CurrentStreak = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestBestStreak(t *testing.T) {
	var answers []Answer
	for _, d := range []int{0, 1, 5, 6, 7, 8, 12} {
		answers = append(answers, answerAt(d, false))
	}
	if got := BestStreak(answers, time.UTC); got != 4 {
		t.Errorf("BestStreak = %d, want 4", got)
	}
	if got := ActiveDays(answers, time.UTC); got != 7 {
		t.Errorf("ActiveDays = %d, want 7", got)
	}
}

func TestSubjectProgress(t *testing.T) {
	var answers []Answer
	for i := 0; i < 12; i++ {
		answers = append(answers, answerAt(i%2, i < 11))
	}
	english := answerAt(4, false)
	english.Subject = "english"
	answers = append(answers, english)
	y5 := answerAt(0, true)
	y5.YearLevel = 5
	answers = append(answers, y5)

	got := SubjectProgress(answers, now, time.UTC)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Subject != "english" || got[1].Subject != "maths" || got[2].YearLevel != 5 {
		t.Fatalf("order = %+v, want year 3 english, year 3 maths, year 5 maths", got)
	}

	maths := got[1]
	if maths.Attempted != 12 || maths.Correct != 11 {
		t.Errorf("maths attempted/correct = %d/%d, want 12/11", maths.Attempted, maths.Correct)
	}
	if maths.Accuracy != 92 {
		t.Errorf("maths accuracy = %d, want 92", maths.Accuracy)
	}
	if maths.XP != 110 || maths.Level != 2 {
		t.Errorf("maths XP/level = %d/%d, want 110/2", maths.XP, maths.Level)
	}
	if maths.Streak != 2 {
		t.Errorf("maths streak = %d, want 2", maths.Streak)
	}
	if !maths.LastActive.Equal(now) {
		t.Errorf("maths last active = %v, want %v", maths.LastActive, now)
	}

	if got[0].XP != 0 || got[0].Level != 1 || got[0].Streak != 0 {
		t.Errorf("english = %+v, want zero XP, level 1, no streak", got[0])
	}
}
