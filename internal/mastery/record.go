package mastery

import (
	"github.com/abhisek/skilltrace/internal/skillgraph"
)

// DefaultMinAttempts is the attempt count from which a score is reported as
// confident.
const DefaultMinAttempts = 3

// Record is the reported mastery of one attempted token.
type Record struct {
	Concept         string `json:"concept"`
	Name            string `json:"name"`
	MasteryScore    int    `json:"masteryScore"`
	RawScore        int    `json:"rawScore"`
	CorrectAttempts int    `json:"correctAttempts"`
	TotalAttempts   int    `json:"totalAttempts"`
	CappedBy        string `json:"cappedBy,omitempty"`
	Confident       bool   `json:"confident"`
	Level           Level  `json:"level"`
}

// Records derives reported mastery from a projection. A token's reported
// score is its raw score capped by the reported score of every direct
// prerequisite that has attempts; prerequisites without attempts do not
// limit. Records come back in topological order, and tokens without attempts
// have no record.
func Records(p *Projection, g *skillgraph.Graph, minAttempts int) []Record {
	reported := make(map[string]int, len(p.tallies))
	var out []Record

	for _, id := range g.TopologicalOrder() {
		t, ok := p.tallies[id]
		if !ok {
			continue
		}
		tok, _ := g.Get(id)

		raw := t.Raw()
		score, cappedBy := raw, ""
		for _, pre := range tok.Prerequisites {
			if ps, ok := reported[pre]; ok && ps < score {
				score, cappedBy = ps, pre
			}
		}
		reported[id] = score

		out = append(out, Record{
			Concept:         id,
			Name:            tok.DisplayName(),
			MasteryScore:    score,
			RawScore:        raw,
			CorrectAttempts: t.Correct,
			TotalAttempts:   t.Total,
			CappedBy:        cappedBy,
			Confident:       t.Total >= minAttempts,
			Level:           LevelFor(score),
		})
	}
	return out
}

// Index returns the records keyed by concept.
func Index(records []Record) map[string]Record {
	m := make(map[string]Record, len(records))
	for _, r := range records {
		m[r.Concept] = r
	}
	return m
}
