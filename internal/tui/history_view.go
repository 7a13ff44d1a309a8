package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderHistoryView lists the browsable rounds and the live genome summary.
func RenderHistoryView(m Model) string {
	selectedStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	entries := m.session.Entries()
	pos := selectedPosition(entries, m.selector)

	var b strings.Builder
	for i, e := range entries {
		line := "  " + e.Label
		if i == pos {
			line = selectedStyle.Render("> " + e.Label)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	g := m.session.Genome()
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Design Genome"))
	b.WriteString("\n")
	if strings.TrimSpace(g.DesignSummary) == "" {
		b.WriteString(dimStyle.Render("No preferences learned yet."))
		b.WriteString("\n")
	} else {
		b.WriteString(g.DesignSummary)
		b.WriteString("\n")
	}
	writeList(&b, "Likes", g.ConfirmedLikes, dimStyle)
	writeList(&b, "Rejections", g.HardRejections, dimStyle)
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, title string, items []string, style lipgloss.Style) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(style.Render(fmt.Sprintf("%s (%d)", title, len(items))))
	b.WriteString("\n")
	for _, item := range items {
		b.WriteString("• ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}
