package mastery

import (
	"testing"

	"github.com/abhisek/skilltrace/internal/scoring"
)

func TestProjection_RawMasteryMonotonic(t *testing.T) {
	tests := []struct {
		name    string
		outcome []bool
	}{
		{"all correct", []bool{true, true, true, true}},
		{"all incorrect", []bool{false, false, false}},
		{"mixed", []bool{true, false, false, true, true, false, true, true, false, false}},
		{"recovery after misses", []bool{false, false, false, true, true, true, true}},
		{"rounding edge", []bool{true, true, false, true, true, true, false, true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProjection()
			for i, correct := range tt.outcome {
				before, seen := p.Tally("place-value")
				p.Apply(scoring.AttributedToken{TokenID: "place-value", IsCorrect: correct})
				after, _ := p.Tally("place-value")

				if after.Total != before.Total+1 {
					t.Fatalf("step %d: Total = %d, want %d", i, after.Total, before.Total+1)
				}
				if !seen {
					continue
				}
				if correct && after.Raw() < before.Raw() {
					t.Errorf("step %d: correct attempt lowered Raw() from %d to %d", i, before.Raw(), after.Raw())
				}
				if !correct && after.Raw() > before.Raw() {
					t.Errorf("step %d: incorrect attempt raised Raw() from %d to %d", i, before.Raw(), after.Raw())
				}
			}
		})
	}
}

func TestProjection_OtherTokensUnaffected(t *testing.T) {
	p := NewProjection()
	p.Apply(scoring.AttributedToken{TokenID: "addition", IsCorrect: true})
	p.Apply(scoring.AttributedToken{TokenID: "addition", IsCorrect: false})
	p.Apply(scoring.AttributedToken{TokenID: "place-value", IsCorrect: false})

	got, ok := p.Tally("addition")
	if !ok {
		t.Fatal("Tally(addition) missing")
	}
	if got.Raw() != 50 {
		t.Errorf("Tally(addition).Raw() = %d, want 50", got.Raw())
	}
}
