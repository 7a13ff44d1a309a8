package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// RenderDiscoveryView shows the selected round's candidates, the in-flight
// progress label, or the empty-state prompt.
func RenderDiscoveryView(m Model) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	historyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	view := m.session.View(m.selector)
	inFlight := m.session.InFlight() && !view.Archived()

	var sections []string
	if inFlight {
		label := "AI is thinking..."
		if view.Result != nil {
			label = view.Result.Status.Label()
		}
		frame := spinnerFrames[m.spinnerIndex%len(spinnerFrames)]
		sections = append(sections, titleStyle.Render(fmt.Sprintf("%s %s", frame, label)))
	}

	if view.Result == nil || len(view.Result.Images) == 0 {
		if !inFlight {
			sections = append(sections, renderEmptyState(m))
		}
		return strings.Join(sections, "\n\n")
	}

	title := titleStyle.Render(fmt.Sprintf("Round %d Candidates", view.Result.Round))
	if view.Archived() {
		title += " " + historyStyle.Render("(History)")
	}
	sections = append(sections, title)
	for i, img := range view.Result.Images {
		sections = append(sections, renderImageCard(i+1, img.Name, img.Type, img.Prompt, m.resolveURL(img.URL), dimStyle))
	}
	return strings.Join(sections, "\n\n")
}

func renderEmptyState(m Model) string {
	title := lipgloss.NewStyle().Bold(true).Render("Ready to discover your dream car?")
	hint := "Type what you like or press ctrl+s to start Round 1."
	if round := m.session.Genome().Round; round > 0 {
		hint = fmt.Sprintf("Describe what to change and press ctrl+s to generate Round %d.", round+1)
	}
	return title + "\n" + hint
}

func renderImageCard(n int, name string, kind string, prompt string, url string, dim lipgloss.Style) string {
	tagColor := lipgloss.Color("46")
	if kind == "exploration" {
		tagColor = lipgloss.Color("214")
	}
	header := fmt.Sprintf("%d. %s", n, name)
	if kind != "" {
		header += " " + lipgloss.NewStyle().Foreground(tagColor).Render("["+kind+"]")
	}
	lines := []string{header}
	if strings.TrimSpace(prompt) != "" {
		lines = append(lines, "   "+prompt)
	}
	if url != "" {
		lines = append(lines, "   "+dim.Render(url))
	}
	return strings.Join(lines, "\n")
}
