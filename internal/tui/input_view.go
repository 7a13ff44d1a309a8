package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var meterRunes = []rune("▁▂▃▄▅▆▇█")

// renderInput draws the feedback box, with the live level meter while recording.
func renderInput(m Model) string {
	border := lipgloss.Color("240")
	header := "Feedback"
	switch {
	case m.session.Recording():
		border = lipgloss.Color("196")
		header = "● Recording " + RenderLevelMeter(m.session.Levels(), m.meterWidth())
	case m.session.Transcribing():
		border = lipgloss.Color("214")
		header = spinnerFrames[m.spinnerIndex%len(spinnerFrames)] + " Transcribing..."
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
	if m.windowWidth > 4 {
		style = style.Width(m.windowWidth - 4)
	}
	return style.Render(header + "\n" + m.input.View())
}

func (m Model) meterWidth() int {
	if m.windowWidth <= 0 {
		return 40
	}
	w := m.windowWidth - 24
	if w < 10 {
		w = 10
	}
	return w
}

// RenderLevelMeter maps the most recent levels onto block characters,
// newest on the right.
func RenderLevelMeter(levels []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(levels) > width {
		levels = levels[len(levels)-width:]
	}
	var b strings.Builder
	for _, v := range levels {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		idx := int(v * float64(len(meterRunes)-1))
		b.WriteRune(meterRunes[idx])
	}
	return b.String()
}
