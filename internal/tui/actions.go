package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Notice is a blocking message the user must acknowledge.
type Notice struct {
	Title   string
	Message string
	IsError bool
}

func errorNotice(title string, err error) *Notice {
	return &Notice{Title: title, Message: err.Error(), IsError: true}
}

// RenderNotice renders the notification modal.
func RenderNotice(m Model) string {
	if m.notice == nil {
		return ""
	}
	color := lipgloss.Color("46")
	if m.notice.IsError {
		color = lipgloss.Color("196")
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(color)
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	lines := []string{
		titleStyle.Render(m.notice.Title),
		"",
		m.notice.Message,
		"",
		helpStyle.Render("Enter/ESC: dismiss"),
	}
	return centerModal(m, lines, color)
}

// RenderResetConfirmModal asks before the whole session is discarded.
func RenderResetConfirmModal(m Model) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	buttonStyle := lipgloss.NewStyle().
		Padding(0, 2).
		Margin(0, 1).
		Foreground(lipgloss.Color("15")).
		Bold(true)
	yesButton := buttonStyle.Background(lipgloss.Color("46")).Render("[ Yes ]")
	noButton := buttonStyle.Background(lipgloss.Color("196")).Render("[ No ]")

	rounds := m.session.HistoryLen()
	message := fmt.Sprintf("Reset everything? %d archived round(s) and the design genome will be discarded.", rounds)

	lines := []string{
		titleStyle.Render("⚠ Reset Session"),
		"",
		message,
		"",
		lipgloss.JoinHorizontal(lipgloss.Left, yesButton, noButton),
		"",
		helpStyle.Render("Y: Yes • N/ESC: No"),
	}
	return centerModal(m, lines, lipgloss.Color("220"))
}

func centerModal(m Model, lines []string, border lipgloss.Color) string {
	modalWidth := 60
	if m.windowWidth > 0 && m.windowWidth < modalWidth+4 {
		modalWidth = m.windowWidth - 4
	}
	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(1, 2).
		Width(modalWidth)

	modal := modalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	if m.windowHeight > 0 {
		topPadding := (m.windowHeight - lipgloss.Height(modal)) / 2
		if topPadding > 0 {
			return lipgloss.NewStyle().PaddingTop(topPadding).Render(modal)
		}
	}
	return modal
}
