// Package progress summarises attempt history into day buckets and
// per-subject progress.
package progress

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"github.com/abhisek/skilltrace/internal/questionbank"
	"github.com/abhisek/skilltrace/internal/scoring"
	"github.com/abhisek/skilltrace/internal/store"
)

var ErrInvalidDays = errors.New("days must be positive")

const (
	XPPerCorrect = 10
	XPPerLevel   = 100
)

// Answer is a graded attempt.
type Answer struct {
	QuestionID string
	SectionID  string
	YearLevel  int
	Subject    string
	Correct    bool
	Timestamp  time.Time
}

// Grade resolves events against the bank. Events that no longer match the
// content are dropped.
func Grade(events []store.AttemptEvent, bank *questionbank.Bank) []Answer {
	out := make([]Answer, 0, len(events))
	for _, ev := range events {
		q, err := bank.Question(ev.QuestionID)
		if err != nil {
			continue
		}
		attr, err := scoring.Attribute(q, ev.ChosenOption)
		if err != nil {
			continue
		}
		out = append(out, Answer{
			QuestionID: q.ID,
			SectionID:  q.Location.SectionID,
			YearLevel:  q.Location.YearLevel,
			Subject:    q.Location.Subject,
			Correct:    attr.IsCorrect,
			Timestamp:  ev.Timestamp,
		})
	}
	return out
}

// Day is the activity of one calendar day.
type Day struct {
	Date               string `json:"date"`
	QuestionsAttempted int    `json:"questionsAttempted"`
	QuestionsCorrect   int    `json:"questionsCorrect"`
	Accuracy           int    `json:"accuracy"`
}

// DailyStats buckets answers into the last days calendar days in loc,
// oldest first and ending with today. Days without activity are present
// with zero counts.
func DailyStats(answers []Answer, days int, now time.Time, loc *time.Location) ([]Day, error) {
	if days <= 0 {
		return nil, ErrInvalidDays
	}
	if loc == nil {
		loc = time.UTC
	}
	today := dayStart(now, loc)
	first := today.AddDate(0, 0, -(days - 1))

	out := make([]Day, days)
	index := make(map[string]int, days)
	for i := range out {
		key := first.AddDate(0, 0, i).Format(time.DateOnly)
		out[i].Date = key
		index[key] = i
	}
	for _, a := range answers {
		i, ok := index[a.Timestamp.In(loc).Format(time.DateOnly)]
		if !ok {
			continue
		}
		out[i].QuestionsAttempted++
		if a.Correct {
			out[i].QuestionsCorrect++
		}
	}
	for i := range out {
		out[i].Accuracy = scoring.Percent(out[i].QuestionsCorrect, out[i].QuestionsAttempted)
	}
	return out, nil
}

// Subject is the cumulative progress in one subject of one year level.
type Subject struct {
	YearLevel  int       `json:"yearLevel"`
	Subject    string    `json:"subject"`
	Attempted  int       `json:"attempted"`
	Correct    int       `json:"correct"`
	Accuracy   int       `json:"accuracy"`
	XP         int       `json:"xp"`
	Level      int       `json:"level"`
	Streak     int       `json:"streak"`
	LastActive time.Time `json:"lastActive"`
}

// SubjectProgress groups answers by year level and subject, ordered by
// year level then subject.
func SubjectProgress(answers []Answer, now time.Time, loc *time.Location) []Subject {
	type key struct {
		year    int
		subject string
	}
	groups := make(map[key][]Answer)
	for _, a := range answers {
		k := key{a.YearLevel, a.Subject}
		groups[k] = append(groups[k], a)
	}

	out := make([]Subject, 0, len(groups))
	for k, as := range groups {
		s := Subject{YearLevel: k.year, Subject: k.subject}
		for _, a := range as {
			s.Attempted++
			if a.Correct {
				s.Correct++
			}
			if a.Timestamp.After(s.LastActive) {
				s.LastActive = a.Timestamp
			}
		}
		s.Accuracy = scoring.Percent(s.Correct, s.Attempted)
		s.XP = s.Correct * XPPerCorrect
		s.Level = 1 + s.XP/XPPerLevel
		s.Streak = CurrentStreak(as, now, loc)
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Subject) int {
		if c := cmp.Compare(a.YearLevel, b.YearLevel); c != 0 {
			return c
		}
		return cmp.Compare(a.Subject, b.Subject)
	})
	return out
}

// CurrentStreak counts consecutive active days ending today, or ending
// yesterday when nothing has been answered yet today.
func CurrentStreak(answers []Answer, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	active := activeDays(answers, loc)
	day := dayStart(now, loc)
	if !active[day.Format(time.DateOnly)] {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for active[day.Format(time.DateOnly)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// BestStreak returns the longest run of consecutive active days.
func BestStreak(answers []Answer, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	active := activeDays(answers, loc)
	best := 0
	for key := range active {
		d, _ := time.ParseInLocation(time.DateOnly, key, loc)
		if active[d.AddDate(0, 0, -1).Format(time.DateOnly)] {
			continue // not the start of a run
		}
		n := 0
		for active[d.Format(time.DateOnly)] {
			n++
			d = d.AddDate(0, 0, 1)
		}
		best = max(best, n)
	}
	return best
}

// ActiveDays returns the number of distinct days with at least one answer.
func ActiveDays(answers []Answer, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	return len(activeDays(answers, loc))
}

func activeDays(answers []Answer, loc *time.Location) map[string]bool {
	days := make(map[string]bool)
	for _, a := range answers {
		days[a.Timestamp.In(loc).Format(time.DateOnly)] = true
	}
	return days
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
