// Package report assembles the structured facts of a parent report. It
// produces numbers and lists only; narrative text comes from insights.
package report

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/abhisek/skilltrace/internal/curriculum"
	"github.com/abhisek/skilltrace/internal/diagnosis"
	"github.com/abhisek/skilltrace/internal/mastery"
	"github.com/abhisek/skilltrace/internal/progress"
	"github.com/abhisek/skilltrace/internal/scoring"
	"github.com/abhisek/skilltrace/internal/store"
)

// Summary holds the activity totals of the period.
type Summary struct {
	QuestionsAttempted int `json:"questionsAttempted"`
	QuestionsCorrect   int `json:"questionsCorrect"`
	Accuracy           int `json:"accuracy"`
	ActiveDays         int `json:"activeDays"`
	CurrentStreak      int `json:"currentStreak"`
}

// Strength is a confidently mastered concept.
type Strength struct {
	Concept      string `json:"concept"`
	Name         string `json:"name"`
	MasteryScore int    `json:"masteryScore"`
}

// Achievement kinds.
const (
	AchievementMastered = "mastered"
	AchievementStreak   = "streak"
	AchievementLevel    = "level"
)

// Achievement is a milestone worth celebrating.
type Achievement struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
}

// SectionRecommendation is a section that practices weak concepts.
type SectionRecommendation struct {
	SectionID string   `json:"sectionId"`
	Title     string   `json:"title"`
	YearLevel int      `json:"yearLevel"`
	Subject   string   `json:"subject"`
	Concepts  []string `json:"concepts"`
}

// ParentReport is the fact sheet for one learner over one period. Mastery
// facts are cumulative; Summary and Subjects cover the period only.
type ParentReport struct {
	Learner             store.Learner            `json:"learner"`
	Period              Period                   `json:"period"`
	From                time.Time                `json:"from,omitzero"`
	GeneratedAt         time.Time                `json:"generatedAt"`
	Summary             Summary                  `json:"summary"`
	Subjects            []progress.Subject       `json:"subjects"`
	Strengths           []Strength               `json:"strengths"`
	Focus               []diagnosis.WeakConcept  `json:"focus"`
	ErrorPatterns       []diagnosis.ErrorPattern `json:"errorPatterns"`
	Achievements        []Achievement            `json:"achievements"`
	RecommendedSections []SectionRecommendation  `json:"recommendedSections"`
}

// Builder assembles parent reports.
type Builder struct {
	catalog  *curriculum.Catalog
	learners store.LearnerRepo
	history  mastery.History
	mastery  *mastery.Service
	detector *diagnosis.Detector
	loc      *time.Location
	now      func() time.Time
}

// NewBuilder creates a report builder. Calendar days are taken in loc.
func NewBuilder(cat *curriculum.Catalog, learners store.LearnerRepo, history mastery.History,
	svc *mastery.Service, detector *diagnosis.Detector, loc *time.Location) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{
		catalog:  cat,
		learners: learners,
		history:  history,
		mastery:  svc,
		detector: detector,
		loc:      loc,
		now:      time.Now,
	}
}

// ParentReport builds the report for a learner. An unknown period fails with
// ErrInvalidPeriod; an unknown learner with store.ErrLearnerNotFound.
func (b *Builder) ParentReport(ctx context.Context, learnerID string, period Period) (*ParentReport, error) {
	period, err := ParsePeriod(string(period))
	if err != nil {
		return nil, err
	}
	learner, err := b.learners.Get(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	now := b.now()
	from := period.Start(now, b.loc)
	events, err := b.history.LearnerAttempts(ctx, learnerID, store.QueryOpts{})
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", learnerID, err)
	}
	all := progress.Grade(events, b.catalog.Bank)
	inPeriod := all
	if !from.IsZero() {
		inPeriod = slices.DeleteFunc(slices.Clone(all), func(a progress.Answer) bool {
			return a.Timestamp.Before(from)
		})
	}

	p, err := b.mastery.Projection(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	records := b.mastery.Records(p)
	weak := b.detector.Analyze(p)

	rep := &ParentReport{
		Learner:             learner,
		Period:              period,
		From:                from,
		GeneratedAt:         now,
		Summary:             summarize(inPeriod, all, now, b.loc),
		Subjects:            progress.SubjectProgress(inPeriod, now, b.loc),
		Strengths:           strengths(records),
		Focus:               weak.WeakConcepts,
		ErrorPatterns:       weak.ErrorPatterns,
		RecommendedSections: b.recommend(weak.WeakConcepts),
	}
	rep.Achievements = achievements(records, progress.SubjectProgress(all, now, b.loc), progress.BestStreak(all, b.loc))
	return rep, nil
}

func summarize(inPeriod, all []progress.Answer, now time.Time, loc *time.Location) Summary {
	var s Summary
	for _, a := range inPeriod {
		s.QuestionsAttempted++
		if a.Correct {
			s.QuestionsCorrect++
		}
	}
	s.Accuracy = scoring.Percent(s.QuestionsCorrect, s.QuestionsAttempted)
	s.ActiveDays = progress.ActiveDays(inPeriod, loc)
	s.CurrentStreak = progress.CurrentStreak(all, now, loc)
	return s
}

func strengths(records []mastery.Record) []Strength {
	out := []Strength{}
	for _, r := range records {
		if r.Confident && r.MasteryScore >= mastery.MasteredThreshold {
			out = append(out, Strength{Concept: r.Concept, Name: r.Name, MasteryScore: r.MasteryScore})
		}
	}
	slices.SortFunc(out, func(a, b Strength) int {
		if c := cmp.Compare(b.MasteryScore, a.MasteryScore); c != 0 {
			return c
		}
		return cmp.Compare(a.Concept, b.Concept)
	})
	return out
}

// MinStreakAchievement is the shortest streak reported as an achievement.
const MinStreakAchievement = 3

func achievements(records []mastery.Record, subjects []progress.Subject, bestStreak int) []Achievement {
	out := []Achievement{}
	for _, r := range records {
		if r.Confident && r.MasteryScore >= mastery.MasteredThreshold {
			out = append(out, Achievement{Kind: AchievementMastered, Title: "Mastered " + r.Name})
		}
	}
	if bestStreak >= MinStreakAchievement {
		out = append(out, Achievement{Kind: AchievementStreak, Title: fmt.Sprintf("%d-day practice streak", bestStreak)})
	}
	title := cases.Title(language.English)
	for _, s := range subjects {
		if s.Level > 1 {
			out = append(out, Achievement{
				Kind:  AchievementLevel,
				Title: fmt.Sprintf("Reached level %d in Year %d %s", s.Level, s.YearLevel, title.String(s.Subject)),
			})
		}
	}
	return out
}

// recommend lists the sections whose questions target a weak concept,
// either as the correct answer's token or as a distractor's token, in
// content order.
func (b *Builder) recommend(weak []diagnosis.WeakConcept) []SectionRecommendation {
	out := []SectionRecommendation{}
	if len(weak) == 0 {
		return out
	}
	want := make(map[string]bool, len(weak))
	for _, w := range weak {
		want[w.Concept] = true
	}

	bank := b.catalog.Bank
	for _, year := range bank.YearLevels() {
		for _, subject := range bank.Subjects(year) {
			for _, sec := range bank.SectionsFor(year, subject) {
				hit := make(map[string]bool)
				for _, q := range bank.SectionQuestions(sec.ID) {
					if want[q.CorrectToken] {
						hit[q.CorrectToken] = true
					}
					for i := range q.Options {
						if tok := q.OptionToken(i); want[tok] {
							hit[tok] = true
						}
					}
				}
				if len(hit) == 0 {
					continue
				}
				concepts := make([]string, 0, len(hit))
				for c := range hit {
					concepts = append(concepts, c)
				}
				slices.Sort(concepts)
				out = append(out, SectionRecommendation{
					SectionID: sec.ID,
					Title:     sec.Title,
					YearLevel: sec.YearLevel,
					Subject:   sec.Subject,
					Concepts:  concepts,
				})
			}
		}
	}
	return out
}
