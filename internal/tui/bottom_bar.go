package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func RenderBottomBar(model Model) string {
	left := strings.Join(actionHints(model), " ")
	if model.flash != "" {
		left = fmt.Sprintf("%s | %s", left, model.flash)
	} else if model.session.InFlight() {
		frame := spinnerFrames[model.spinnerIndex%len(spinnerFrames)]
		left = fmt.Sprintf("%s | %s generating", left, frame)
	}

	right := fmt.Sprintf("round:%d archived:%d", model.session.CurrentRound(), model.session.HistoryLen())
	contentWidth := model.windowWidth
	padding := 1
	if contentWidth > 0 {
		contentWidth = contentWidth - padding*2
		if contentWidth < 0 {
			contentWidth = 0
		}
	}
	bar := layoutBar(left, right, contentWidth)

	style := lipgloss.NewStyle().Reverse(true).Padding(0, padding)
	return style.Render(bar)
}

func actionHints(model Model) []string {
	switch model.mode {
	case ModeNotice:
		return []string{"[enter]dismiss", "[ctrl+c]quit"}
	case ModeConfirmReset:
		return []string{"[y]es", "[n]o", "[ctrl+c]quit"}
	}
	actions := []string{
		"[ctrl+s]generate",
		"[ctrl+r]record",
		"[pgup/pgdn]browse",
		"[ctrl+o]current",
		"[ctrl+x]reset",
		"[ctrl+c]quit",
	}
	if model.session.InFlight() {
		actions = removeAction(actions, "[ctrl+s]generate")
		actions = removeAction(actions, "[ctrl+r]record")
	}
	if model.session.Recording() {
		actions = removeAction(actions, "[ctrl+s]generate")
		actions = replaceAction(actions, "[ctrl+r]record", "[ctrl+r]stop")
	}
	if model.session.Transcribing() {
		actions = removeAction(actions, "[ctrl+s]generate")
		actions = removeAction(actions, "[ctrl+r]record")
	}
	if model.selector.IsCurrent() {
		actions = removeAction(actions, "[ctrl+o]current")
	}
	return actions
}

func removeAction(actions []string, remove string) []string {
	filtered := make([]string, 0, len(actions))
	for _, action := range actions {
		if action == remove {
			continue
		}
		filtered = append(filtered, action)
	}
	return filtered
}

func replaceAction(actions []string, from string, to string) []string {
	out := make([]string, len(actions))
	for i, action := range actions {
		if action == from {
			action = to
		}
		out[i] = action
	}
	return out
}

func layoutBar(left string, right string, width int) string {
	if width <= 0 {
		return left + " " + right
	}
	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)
	gap := width - leftWidth - rightWidth
	if gap < 1 {
		availableLeft := width - rightWidth - 1
		if availableLeft < 0 {
			return truncate(right, width)
		}
		left = truncate(left, availableLeft)
		leftWidth = lipgloss.Width(left)
		gap = width - leftWidth - rightWidth
		if gap < 1 {
			gap = 1
		}
	}
	bar := left + strings.Repeat(" ", gap) + right
	return truncate(bar, width)
}
