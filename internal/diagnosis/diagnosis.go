// Package diagnosis detects weak concepts and recurring wrong-answer
// patterns in a learner's attempt history.
package diagnosis

import (
	"cmp"
	"context"
	"slices"

	"github.com/abhisek/skilltrace/internal/curriculum"
	"github.com/abhisek/skilltrace/internal/mastery"
)

// MinPatternOccurrences is the number of wrong answers attributed to the
// same token before it is reported as an error pattern.
const MinPatternOccurrences = 2

// WeakConcept is an attempted token whose reported mastery is below
// mastery.WeakThreshold.
type WeakConcept struct {
	Concept      string `json:"concept"`
	Name         string `json:"name"`
	MasteryScore int    `json:"masteryScore"`
	Confident    bool   `json:"confident"`
}

// ErrorPattern is a token repeatedly reached through wrong answers.
type ErrorPattern struct {
	TokenID     string `json:"tokenId"`
	Description string `json:"description"`
	Occurrences int    `json:"occurrences"`
}

// Report is the outcome of weakness detection.
type Report struct {
	WeakConcepts  []WeakConcept  `json:"weakConcepts"`
	ErrorPatterns []ErrorPattern `json:"errorPatterns"`
}

// Empty reports whether nothing was detected.
func (r *Report) Empty() bool {
	return len(r.WeakConcepts) == 0 && len(r.ErrorPatterns) == 0
}

// Detector derives weakness reports from mastery projections.
type Detector struct {
	catalog *curriculum.Catalog
	mastery *mastery.Service
}

// NewDetector creates a detector over the given mastery service.
func NewDetector(cat *curriculum.Catalog, svc *mastery.Service) *Detector {
	return &Detector{catalog: cat, mastery: svc}
}

// DetectWeaknesses reports the learner's weak concepts and error patterns.
// A learner without history gets empty lists.
func (d *Detector) DetectWeaknesses(ctx context.Context, learnerID string) (*Report, error) {
	p, err := d.mastery.Projection(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	return d.Analyze(p), nil
}

// Analyze builds a report from an already computed projection.
func (d *Detector) Analyze(p *mastery.Projection) *Report {
	return &Report{
		WeakConcepts:  WeakConcepts(d.mastery.Records(p)),
		ErrorPatterns: d.errorPatterns(p),
	}
}

// WeakConcepts selects records below the weak threshold, lowest score first
// with ties broken by concept id.
func WeakConcepts(records []mastery.Record) []WeakConcept {
	weak := []WeakConcept{}
	for _, r := range records {
		if r.MasteryScore >= mastery.WeakThreshold {
			continue
		}
		weak = append(weak, WeakConcept{
			Concept:      r.Concept,
			Name:         r.Name,
			MasteryScore: r.MasteryScore,
			Confident:    r.Confident,
		})
	}
	slices.SortFunc(weak, func(a, b WeakConcept) int {
		if c := cmp.Compare(a.MasteryScore, b.MasteryScore); c != 0 {
			return c
		}
		return cmp.Compare(a.Concept, b.Concept)
	})
	return weak
}

func (d *Detector) errorPatterns(p *mastery.Projection) []ErrorPattern {
	patterns := []ErrorPattern{}
	for _, id := range p.Tokens() {
		t, _ := p.Tally(id)
		if t.Incorrect() < MinPatternOccurrences {
			continue
		}
		patterns = append(patterns, ErrorPattern{
			TokenID:     id,
			Description: d.describe(id),
			Occurrences: t.Incorrect(),
		})
	}
	slices.SortFunc(patterns, func(a, b ErrorPattern) int {
		if c := cmp.Compare(b.Occurrences, a.Occurrences); c != 0 {
			return c
		}
		return cmp.Compare(a.TokenID, b.TokenID)
	})
	return patterns
}

func (d *Detector) describe(id string) string {
	tok, err := d.catalog.Graph.Get(id)
	if err != nil {
		return id
	}
	if tok.Description != "" {
		return tok.Description
	}
	return tok.DisplayName()
}
