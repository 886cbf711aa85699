// Package scoring grades exam responses and attributes knowledge tokens to
// each answer.
package scoring

import (
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/skilltrace/internal/questionbank"
)

var (
	ErrEmptyExam        = errors.New("exam has no questions")
	ErrOptionOutOfRange = errors.New("chosen option out of range")
)

// Attribution is the knowledge signal carried by one answer. An empty TokenID
// means the answer carries no signal.
type Attribution struct {
	TokenID   string
	IsCorrect bool
}

// Attributed reports whether the answer produced a token.
func (a Attribution) Attributed() bool {
	return a.TokenID != ""
}

// AttributedToken is an attribution placed in time, the unit the mastery
// fold consumes.
type AttributedToken struct {
	TokenID    string
	IsCorrect  bool
	QuestionID string
	Timestamp  time.Time
}

// Attribute resolves the token demonstrated by choosing option chosen.
// A correct answer demonstrates the question's correct token. A wrong answer
// reveals the chosen option's misconception token, if it has one.
func Attribute(q questionbank.Question, chosen int) (Attribution, error) {
	if chosen < 0 || chosen >= len(q.Options) {
		return Attribution{}, fmt.Errorf("%w: question %q has %d options, got %d",
			ErrOptionOutOfRange, q.ID, len(q.Options), chosen)
	}
	if chosen == q.CorrectIndex {
		return Attribution{TokenID: q.CorrectToken, IsCorrect: true}, nil
	}
	return Attribution{TokenID: q.OptionToken(chosen), IsCorrect: false}, nil
}
