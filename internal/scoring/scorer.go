package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/abhisek/skilltrace/internal/exam"
)

// RevisionThresholdPercent is the section accuracy below which a section is
// recommended for revision.
const RevisionThresholdPercent = 60

// SectionBreakdown summarises performance on one section of an exam.
type SectionBreakdown struct {
	SectionID     string `json:"sectionId"`
	SectionTitle  string `json:"sectionTitle"`
	Correct       int    `json:"correct"`
	Total         int    `json:"total"`
	NeedsRevision bool   `json:"needsRevision"`
}

// Outcome is the graded result of a single question.
type Outcome struct {
	QuestionID string      `json:"questionId"`
	SectionID  string      `json:"sectionId"`
	Answered   bool        `json:"answered"`
	Chosen     int         `json:"chosen"`
	IsCorrect  bool        `json:"isCorrect"`
	Token      Attribution `json:"-"`
}

// Result is the graded exam.
type Result struct {
	TotalQuestions      int                `json:"totalQuestions"`
	CorrectAnswers      int                `json:"correctAnswers"`
	Answered            int                `json:"answered"`
	Percentage          int                `json:"percentage"`
	Sections            []SectionBreakdown `json:"sections"`
	RecommendedSections []string           `json:"recommendedSections"`
	Outcomes            []Outcome          `json:"outcomes"`
}

// Tokens returns the attributed tokens of the answered questions, stamped
// with the given time.
func (r *Result) Tokens(at time.Time) []AttributedToken {
	var out []AttributedToken
	for _, o := range r.Outcomes {
		if !o.Answered || !o.Token.Attributed() {
			continue
		}
		out = append(out, AttributedToken{
			TokenID:    o.Token.TokenID,
			IsCorrect:  o.Token.IsCorrect,
			QuestionID: o.QuestionID,
			Timestamp:  at,
		})
	}
	return out
}

// Score grades answers (question ID to chosen option index) against the exam
// questions. A question with no answer counts as incorrect and attributes no
// token. Answers for questions outside the exam are ignored.
func Score(questions []exam.Question, answers map[string]int) (*Result, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyExam
	}

	res := &Result{
		TotalQuestions:      len(questions),
		Sections:            []SectionBreakdown{},
		RecommendedSections: []string{},
		Outcomes:            make([]Outcome, 0, len(questions)),
	}
	sectionIdx := make(map[string]int)

	for _, q := range questions {
		out := Outcome{QuestionID: q.ID, SectionID: q.SectionID, Chosen: -1}
		if chosen, ok := answers[q.ID]; ok {
			attr, err := Attribute(q.Question, chosen)
			if err != nil {
				return nil, err
			}
			out.Answered = true
			out.Chosen = chosen
			out.IsCorrect = attr.IsCorrect
			out.Token = attr
			res.Answered++
		}
		res.Outcomes = append(res.Outcomes, out)

		i, ok := sectionIdx[q.SectionID]
		if !ok {
			i = len(res.Sections)
			sectionIdx[q.SectionID] = i
			res.Sections = append(res.Sections, SectionBreakdown{
				SectionID:    q.SectionID,
				SectionTitle: q.SectionTitle,
			})
		}
		res.Sections[i].Total++
		if out.IsCorrect {
			res.Sections[i].Correct++
			res.CorrectAnswers++
		}
	}

	for i := range res.Sections {
		s := &res.Sections[i]
		s.NeedsRevision = NeedsRevision(s.Correct, s.Total)
		if s.NeedsRevision {
			res.RecommendedSections = append(res.RecommendedSections, s.SectionID)
		}
	}
	res.Percentage = Percent(res.CorrectAnswers, res.TotalQuestions)
	return res, nil
}

// NeedsRevision reports whether correct/total falls below the revision
// threshold. Evaluated in integers so 3/5 is exactly at the threshold.
func NeedsRevision(correct, total int) bool {
	if total == 0 {
		return false
	}
	return correct*100 < total*RevisionThresholdPercent
}

// Percent returns round(100 * part / whole), rounding halves away from zero.
// A zero whole yields 0.
func Percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}

// String implements fmt.Stringer for log output.
func (r *Result) String() string {
	return fmt.Sprintf("%d/%d (%d%%)", r.CorrectAnswers, r.TotalQuestions, r.Percentage)
}
