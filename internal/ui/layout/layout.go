package layout

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/skilltrace/internal/ui/theme"
)

// DefaultWidth is the rendering width when the terminal size is unknown.
const DefaultWidth = 72

// Row is one line of a two-column listing.
type Row struct {
	Key   string
	Value string
}

// RenderHeader renders a boxed title line with a right-aligned subtitle.
func RenderHeader(title, subtitle string, width int) string {
	left := theme.Title.Render(title)
	right := theme.Subtitle.Render(subtitle)

	innerWidth := width - 4 // border and padding
	gap := innerWidth - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return theme.Card.
		Width(width).
		Render(left + strings.Repeat(" ", gap) + right)
}

// RenderSection renders a heading followed by its body lines.
func RenderSection(heading string, lines ...string) string {
	var b strings.Builder
	b.WriteString(theme.Heading.Render(heading))
	b.WriteString("\n")
	if len(lines) == 0 {
		b.WriteString(theme.Hint.Render("  nothing yet"))
		b.WriteString("\n")
	}
	for _, l := range lines {
		b.WriteString("  ")
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}

// RenderRows aligns keys into a column.
func RenderRows(rows []Row) []string {
	keyWidth := 0
	for _, r := range rows {
		keyWidth = max(keyWidth, lipgloss.Width(r.Key))
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		key := theme.Label.Render(r.Key) + strings.Repeat(" ", keyWidth-lipgloss.Width(r.Key))
		out[i] = key + "  " + theme.Body.Render(r.Value)
	}
	return out
}
