package components

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/skilltrace/internal/mastery"
	"github.com/abhisek/skilltrace/internal/ui/theme"
)

func TestProgressBar_View(t *testing.T) {
	tests := []struct {
		percent    int
		wantFilled int
	}{
		{0, 0},
		{50, 10},
		{100, 20},
		{150, 20},
		{-5, 0},
	}
	for _, tt := range tests {
		bar := NewProgressBar("", tt.percent, false, 20)
		out := bar.View()
		if got := strings.Count(out, fullBlock); got != tt.wantFilled {
			t.Errorf("percent %d: filled = %d, want %d", tt.percent, got, tt.wantFilled)
		}
		if got := lipgloss.Width(out); got != 20 {
			t.Errorf("percent %d: width = %d, want 20", tt.percent, got)
		}
	}
}

func TestProgressBar_LabelPadding(t *testing.T) {
	a := ProgressBar{Label: "Place value", LabelWidth: 20, Percent: 40, ShowPercent: true, Width: 50}
	b := ProgressBar{Label: "Counting", LabelWidth: 20, Percent: 90, ShowPercent: true, Width: 50}
	if lipgloss.Width(a.View()) != lipgloss.Width(b.View()) {
		t.Errorf("bars with padded labels differ in width: %d vs %d", lipgloss.Width(a.View()), lipgloss.Width(b.View()))
	}
	if !strings.Contains(a.View(), " 40%") {
		t.Errorf("View() = %q, want percent suffix", a.View())
	}
}

func TestMasteryBar(t *testing.T) {
	r := mastery.Record{Name: "Two-digit addition", MasteryScore: 50, Level: mastery.LevelFor(50), CappedBy: "place-value"}
	out := MasteryBar(r, 20, 50)
	if !strings.Contains(out, "*") {
		t.Error("unconfident record not marked")
	}
	if !strings.Contains(out, "held back by place-value") {
		t.Error("cap not shown")
	}
}

func TestLevelColor(t *testing.T) {
	if LevelColor(mastery.LevelMastered) != theme.Success {
		t.Error("mastered should be success colour")
	}
	if LevelColor(mastery.LevelEmerging) != theme.Error {
		t.Error("emerging should be error colour")
	}
}
