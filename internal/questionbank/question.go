package questionbank

// Option is one answer choice. A non-empty Token names the misconception a
// learner reveals by choosing this option when it is wrong.
type Option struct {
	Text  string
	Token string
}

// Location places a question in the curriculum hierarchy.
type Location struct {
	YearLevel    int
	Subject      string
	StrandID     string
	ChapterID    string
	SectionID    string
	SectionTitle string
}

// Question is an immutable multiple-choice question record.
type Question struct {
	ID           string
	Text         string
	Location     Location
	Difficulty   int
	Options      []Option
	CorrectIndex int
	CorrectToken string
}

// OptionToken returns the token attributed when option i is chosen and wrong.
// The correct option never carries a misconception signal.
func (q Question) OptionToken(i int) string {
	if i < 0 || i >= len(q.Options) || i == q.CorrectIndex {
		return ""
	}
	return q.Options[i].Token
}

// Section is an ordered group of questions within a chapter.
type Section struct {
	ID          string
	Title       string
	YearLevel   int
	Subject     string
	StrandID    string
	ChapterID   string
	QuestionIDs []string
}
