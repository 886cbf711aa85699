package mastery

import (
	"maps"
	"slices"
	"time"

	"github.com/abhisek/skilltrace/internal/questionbank"
	"github.com/abhisek/skilltrace/internal/scoring"
	"github.com/abhisek/skilltrace/internal/store"
)

// snapshotVersion is bumped whenever the persisted fold changes shape.
// Snapshots with another version are ignored and rebuilt by replay.
const snapshotVersion = 1

// Tally counts the attributed attempts of one token.
type Tally struct {
	Correct int
	Total   int
}

// Raw returns round(100 * Correct / Total).
func (t Tally) Raw() int {
	return scoring.Percent(t.Correct, t.Total)
}

// Incorrect returns the number of attributions where the token signalled an
// error.
func (t Tally) Incorrect() int {
	return t.Total - t.Correct
}

// Projection is the fold of a learner's attempt history into per-token
// tallies. Folding the same events in timestamp order always yields the same
// projection, whether they arrive all at once or one at a time.
type Projection struct {
	tallies   map[string]Tally
	sequence  int64
	watermark time.Time
	events    int
	skipped   int
}

// NewProjection returns an empty projection.
func NewProjection() *Projection {
	return &Projection{tallies: make(map[string]Tally)}
}

// Apply folds a single attributed token.
func (p *Projection) Apply(tok scoring.AttributedToken) {
	t := p.tallies[tok.TokenID]
	t.Total++
	if tok.IsCorrect {
		t.Correct++
	}
	p.tallies[tok.TokenID] = t
}

// Fold attributes an attempt event against the bank and applies it. Events
// naming a question or option the bank no longer has are counted as skipped.
func (p *Projection) Fold(ev store.AttemptEvent, bank *questionbank.Bank) {
	p.advance(ev)
	q, err := bank.Question(ev.QuestionID)
	if err != nil {
		p.skipped++
		return
	}
	attr, err := scoring.Attribute(q, ev.ChosenOption)
	if err != nil {
		p.skipped++
		return
	}
	p.events++
	if !attr.Attributed() {
		return
	}
	p.Apply(scoring.AttributedToken{
		TokenID:    attr.TokenID,
		IsCorrect:  attr.IsCorrect,
		QuestionID: ev.QuestionID,
		Timestamp:  ev.Timestamp,
	})
}

func (p *Projection) advance(ev store.AttemptEvent) {
	p.sequence = max(p.sequence, ev.Sequence)
	if ev.Timestamp.After(p.watermark) {
		p.watermark = ev.Timestamp
	}
}

// Replay folds a whole history in one pass. Events must be ordered by
// timestamp.
func Replay(events []store.AttemptEvent, bank *questionbank.Bank) *Projection {
	p := NewProjection()
	for _, ev := range events {
		p.Fold(ev, bank)
	}
	return p
}

// Tally returns the tally of a token and whether it has any attempts.
func (p *Projection) Tally(tokenID string) (Tally, bool) {
	t, ok := p.tallies[tokenID]
	return t, ok
}

// Tokens returns the IDs of every attempted token, sorted.
func (p *Projection) Tokens() []string {
	return slices.Sorted(maps.Keys(p.tallies))
}

// Sequence is the highest event sequence folded in.
func (p *Projection) Sequence() int64 { return p.sequence }

// Watermark is the latest event timestamp folded in.
func (p *Projection) Watermark() time.Time { return p.watermark }

// Events is the number of events that were attributed (with or without a token).
func (p *Projection) Events() int { return p.events }

// Skipped is the number of events that no longer match the content.
func (p *Projection) Skipped() int { return p.skipped }

// Empty reports whether no events have been folded.
func (p *Projection) Empty() bool {
	return p.events == 0 && p.skipped == 0
}

// SameTallies reports whether two projections hold identical tallies.
func (p *Projection) SameTallies(other *Projection) bool {
	return maps.Equal(p.tallies, other.tallies)
}

// Snapshot converts the projection into its persisted form.
func (p *Projection) Snapshot(learnerID string) *store.Snapshot {
	tallies := make(map[string]store.TallyData, len(p.tallies))
	for id, t := range p.tallies {
		tallies[id] = store.TallyData{Correct: t.Correct, Total: t.Total}
	}
	return &store.Snapshot{
		LearnerID: learnerID,
		Sequence:  p.sequence,
		Watermark: p.watermark,
		Data: store.SnapshotData{
			Version: snapshotVersion,
			Tallies: tallies,
			Events:  p.events,
			Skipped: p.skipped,
		},
	}
}

// FromSnapshot restores a projection. It returns nil if the snapshot was
// written by an incompatible version.
func FromSnapshot(snap *store.Snapshot) *Projection {
	if snap == nil || snap.Data.Version != snapshotVersion {
		return nil
	}
	p := NewProjection()
	for id, t := range snap.Data.Tallies {
		p.tallies[id] = Tally{Correct: t.Correct, Total: t.Total}
	}
	p.sequence = snap.Sequence
	p.watermark = snap.Watermark
	p.events = snap.Data.Events
	p.skipped = snap.Data.Skipped
	return p
}
