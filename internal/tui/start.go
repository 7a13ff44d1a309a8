package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jbonatakis/carfinder/internal/studio"
)

// Start runs the interactive client until the user quits. The caller owns
// the session and closes it afterwards.
func Start(session *studio.Session, opts Options) error {
	model := NewModel(session, opts)
	program := tea.NewProgram(model, tea.WithAltScreen())
	final, err := program.Run()
	if fm, ok := final.(Model); ok {
		fm.shutdown()
	}
	return err
}
