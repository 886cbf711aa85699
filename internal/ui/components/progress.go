package components

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/skilltrace/internal/mastery"
	"github.com/abhisek/skilltrace/internal/ui/theme"
)

const (
	fullBlock  = "█"
	emptyBlock = "░"
)

// ProgressBar displays a horizontal bar for a 0-100 score.
type ProgressBar struct {
	Label       string
	LabelWidth  int
	Percent     int
	ShowPercent bool
	Width       int
	Fill        color.Color
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(label string, percent int, showPercent bool, width int) ProgressBar {
	return ProgressBar{
		Label:       label,
		Percent:     percent,
		ShowPercent: showPercent,
		Width:       width,
		Fill:        theme.Secondary,
	}
}

// MasteryBar renders a record's reported score coloured by its level.
// Scores that are not yet confident are marked with a dim asterisk.
func MasteryBar(r mastery.Record, labelWidth, width int) string {
	bar := NewProgressBar(r.Name, r.MasteryScore, true, width)
	bar.LabelWidth = labelWidth
	bar.Fill = LevelColor(r.Level)
	out := bar.View()
	if !r.Confident {
		out += theme.Hint.Render(" *")
	}
	if r.CappedBy != "" {
		out += theme.Hint.Render(" (held back by " + r.CappedBy + ")")
	}
	return out
}

// LevelColor maps a mastery level to its display colour.
func LevelColor(l mastery.Level) color.Color {
	switch l {
	case mastery.LevelMastered:
		return theme.Success
	case mastery.LevelDeveloping:
		return theme.Warning
	default:
		return theme.Error
	}
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var result string

	if p.Label != "" {
		label := lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label)
		if pad := p.LabelWidth - lipgloss.Width(label); pad > 0 {
			label += strings.Repeat(" ", pad)
		}
		result += label + "  "
	}

	labelWidth := lipgloss.Width(result)
	percentWidth := 0
	if p.ShowPercent {
		percentWidth = 6 // "  100%"
	}

	barWidth := p.Width - labelWidth - percentWidth
	if barWidth < 4 {
		barWidth = 4
	}

	percent := min(max(p.Percent, 0), 100)
	filled := barWidth * percent / 100
	empty := barWidth - filled

	fill := p.Fill
	if fill == nil {
		fill = theme.Secondary
	}
	result += lipgloss.NewStyle().Foreground(fill).Render(strings.Repeat(fullBlock, filled))
	result += theme.ProgressEmpty.Render(strings.Repeat(emptyBlock, empty))

	if p.ShowPercent {
		result += lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Render(fmt.Sprintf("  %3d%%", percent))
	}

	return result
}
