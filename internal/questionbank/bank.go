package questionbank

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"

	"github.com/abhisek/skilltrace/internal/skillgraph"
)

var (
	ErrUnknownQuestion   = errors.New("unknown question")
	ErrUnknownSection    = errors.New("unknown section")
	ErrMalformedQuestion = errors.New("malformed question")
	ErrEmptyScope        = errors.New("empty scope")
)

// MinDifficulty is the lowest allowed difficulty rating.
const MinDifficulty = 1

type scopeKey struct {
	yearLevel int
	subject   string
}

// Bank is a read-only view over curriculum questions and sections.
// It is built once and is safe for concurrent use.
type Bank struct {
	questions []Question
	byID      map[string]int
	sections  []Section
	sectionIx map[string]int
	byScope   map[scopeKey][]string // section IDs in strand/chapter/section order
}

// New validates every question against the graph and builds the bank.
// Sections must be supplied in curriculum traversal order.
func New(sections []Section, questions []Question, graph *skillgraph.Graph) (*Bank, error) {
	b := &Bank{
		questions: make([]Question, 0, len(questions)),
		byID:      make(map[string]int, len(questions)),
		sections:  make([]Section, 0, len(sections)),
		sectionIx: make(map[string]int, len(sections)),
		byScope:   make(map[scopeKey][]string),
	}

	var errs []string
	for _, s := range sections {
		if _, dup := b.sectionIx[s.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate section ID: %q", s.ID))
			continue
		}
		s.QuestionIDs = nil
		b.sectionIx[s.ID] = len(b.sections)
		b.sections = append(b.sections, s)
		key := scopeKey{s.YearLevel, s.Subject}
		b.byScope[key] = append(b.byScope[key], s.ID)
	}

	for _, q := range questions {
		if _, dup := b.byID[q.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate question ID: %q", q.ID))
			continue
		}
		if problems := checkQuestion(q, graph); len(problems) > 0 {
			for _, p := range problems {
				errs = append(errs, fmt.Sprintf("question %q: %s", q.ID, p))
			}
			continue
		}
		si, ok := b.sectionIx[q.Location.SectionID]
		if !ok {
			errs = append(errs, fmt.Sprintf("question %q: unknown section %q", q.ID, q.Location.SectionID))
			continue
		}
		sec := &b.sections[si]
		q.Location = Location{
			YearLevel:    sec.YearLevel,
			Subject:      sec.Subject,
			StrandID:     sec.StrandID,
			ChapterID:    sec.ChapterID,
			SectionID:    sec.ID,
			SectionTitle: sec.Title,
		}
		q.Options = slices.Clone(q.Options)
		b.byID[q.ID] = len(b.questions)
		b.questions = append(b.questions, q)
		sec.QuestionIDs = append(sec.QuestionIDs, q.ID)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w:\n  %s", ErrMalformedQuestion, strings.Join(errs, "\n  "))
	}
	return b, nil
}

func checkQuestion(q Question, graph *skillgraph.Graph) []string {
	var problems []string
	if q.ID == "" {
		problems = append(problems, "empty ID")
	}
	if len(q.Options) < 2 {
		problems = append(problems, fmt.Sprintf("needs at least 2 options, got %d", len(q.Options)))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		problems = append(problems, fmt.Sprintf("correct index %d out of range [0, %d)", q.CorrectIndex, len(q.Options)))
	}
	if q.Difficulty < MinDifficulty {
		problems = append(problems, fmt.Sprintf("difficulty must be >= %d, got %d", MinDifficulty, q.Difficulty))
	}
	if !graph.Has(q.CorrectToken) {
		problems = append(problems, fmt.Sprintf("correct token %q not in knowledge graph", q.CorrectToken))
	}
	for i, o := range q.Options {
		if o.Token != "" && !graph.Has(o.Token) {
			problems = append(problems, fmt.Sprintf("option %d token %q not in knowledge graph", i, o.Token))
		}
	}
	return problems
}

// Len returns the number of questions.
func (b *Bank) Len() int {
	return len(b.questions)
}

// Question returns a question by ID.
func (b *Bank) Question(id string) (Question, error) {
	i, ok := b.byID[id]
	if !ok {
		return Question{}, fmt.Errorf("%w: %q", ErrUnknownQuestion, id)
	}
	return b.question(i), nil
}

// question copies the stored question so callers cannot reach the bank's
// option slices.
func (b *Bank) question(i int) Question {
	q := b.questions[i]
	q.Options = slices.Clone(q.Options)
	return q
}

// Section returns a section by ID.
func (b *Bank) Section(id string) (Section, error) {
	i, ok := b.sectionIx[id]
	if !ok {
		return Section{}, fmt.Errorf("%w: %q", ErrUnknownSection, id)
	}
	s := b.sections[i]
	s.QuestionIDs = slices.Clone(s.QuestionIDs)
	return s, nil
}

// SectionQuestions returns the questions of a section in source order.
func (b *Bank) SectionQuestions(id string) []Question {
	i, ok := b.sectionIx[id]
	if !ok {
		return nil
	}
	ids := b.sections[i].QuestionIDs
	out := make([]Question, 0, len(ids))
	for _, qid := range ids {
		out = append(out, b.question(b.byID[qid]))
	}
	return out
}

// SectionsFor returns the sections of a year level and subject in
// strand, chapter, section order.
func (b *Bank) SectionsFor(yearLevel int, subject string) []Section {
	ids := b.byScope[scopeKey{yearLevel, subject}]
	out := make([]Section, 0, len(ids))
	for _, id := range ids {
		s := b.sections[b.sectionIx[id]]
		s.QuestionIDs = slices.Clone(s.QuestionIDs)
		out = append(out, s)
	}
	return out
}

// YearLevels returns every year level with at least one section, ascending.
func (b *Bank) YearLevels() []int {
	seen := make(map[int]bool)
	var out []int
	for k := range b.byScope {
		if !seen[k.yearLevel] {
			seen[k.yearLevel] = true
			out = append(out, k.yearLevel)
		}
	}
	sort.Ints(out)
	return out
}

// Subjects returns the subjects offered for a year level, sorted.
func (b *Bank) Subjects(yearLevel int) []string {
	var out []string
	for k := range b.byScope {
		if k.yearLevel == yearLevel {
			out = append(out, k.subject)
		}
	}
	sort.Strings(out)
	return out
}

// Pool flattens the questions of the given sections in the order given.
func (b *Bank) Pool(sectionIDs []string) []Question {
	var pool []Question
	for _, id := range sectionIDs {
		pool = append(pool, b.SectionQuestions(id)...)
	}
	return pool
}

// RandomSample shuffles the pooled questions of the given sections uniformly
// and returns the first min(count, pool) of them.
func (b *Bank) RandomSample(rng *rand.Rand, sectionIDs []string, count int) ([]Question, error) {
	count = max(count, 0)
	pool := b.Pool(sectionIDs)
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: no questions in sections %v", ErrEmptyScope, sectionIDs)
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:min(count, len(pool))], nil
}

// StratifiedSample spreads the selection across sections. Each section first
// contributes up to ceil(count/sections) shuffled questions; remaining slots
// are filled round-robin from sections that still have questions. The result
// is shuffled so section grouping does not leak into question order.
func (b *Bank) StratifiedSample(rng *rand.Rand, sectionIDs []string, count int) ([]Question, error) {
	var groups [][]Question
	total := 0
	for _, id := range sectionIDs {
		qs := b.SectionQuestions(id)
		if len(qs) == 0 {
			continue
		}
		rng.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
		groups = append(groups, qs)
		total += len(qs)
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: no questions in sections %v", ErrEmptyScope, sectionIDs)
	}

	want := min(max(count, 0), total)
	if want == 0 {
		return []Question{}, nil
	}
	share := (want + len(groups) - 1) / len(groups)
	out := make([]Question, 0, want)
	taken := make([]int, len(groups))
	for gi, g := range groups {
		n := min(share, len(g), want-len(out))
		out = append(out, g[:n]...)
		taken[gi] = n
	}
	for len(out) < want {
		for gi, g := range groups {
			if len(out) == want {
				break
			}
			if taken[gi] < len(g) {
				out = append(out, g[taken[gi]])
				taken[gi]++
			}
		}
	}

	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}
