package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func splitPaneWidths(total int) (int, int) {
	if total <= 0 {
		return 0, 0
	}
	// Each pane renders two columns wider than its content (borders).
	minLeft := 22
	minRight := 30
	available := total - 4
	if available < 0 {
		available = 0
	}
	left := available / 4
	if left < minLeft {
		left = minLeft
	}
	if available-left < minRight {
		left = available - minRight
		if left < minLeft {
			left = available / 2
		}
	}
	right := available - left
	if right < 0 {
		right = 0
	}
	return left, right
}

func renderPane(content string, width int, height int, title string, active bool) string {
	borderColor := lipgloss.Color("240")
	titleColor := lipgloss.Color("240")
	if active {
		borderColor = lipgloss.Color("69")
		titleColor = lipgloss.Color("69")
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Width(width).
		Height(height).
		MaxHeight(height + 2).
		Padding(0, 1)

	rendered := style.Render(content)
	if title == "" {
		return rendered
	}

	// Rebuild the top border with the title inlined. The border line holds
	// ANSI escapes, so it is re-rendered rather than edited in place.
	lines := strings.Split(rendered, "\n")
	if len(lines) < 2 {
		return rendered
	}
	targetWidth := lipgloss.Width(lines[1])
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(titleColor)
	nMiddle := targetWidth - 7 - lipgloss.Width(title)
	if nMiddle < 0 {
		nMiddle = 0
	}
	top := func(n int) string {
		return borderStyle.Render("╭ ") +
			titleStyle.Render(" "+title+" ") +
			borderStyle.Render(strings.Repeat("─", n)+"╮")
	}
	topLine := top(nMiddle)
	if w := lipgloss.Width(topLine); w < targetWidth {
		topLine = top(nMiddle + targetWidth - w)
	}
	lines[0] = topLine
	return strings.Join(lines, "\n")
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width])
}
