package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jbonatakis/carfinder/internal/audio"
	"github.com/jbonatakis/carfinder/internal/genome"
	"github.com/jbonatakis/carfinder/internal/orchestrator"
	"github.com/jbonatakis/carfinder/internal/studio"
)

// Every timer and request message carries the generation it was issued
// under; the session refuses generations that are no longer current.

type pollTickMsg struct{ gen uint64 }

type sampleTickMsg struct{ gen uint64 }

type spinnerTickMsg struct{}

type submitResultMsg struct {
	gen    uint64
	taskID string
	err    error
}

type statusResultMsg struct {
	gen  uint64
	task genome.Task
	err  error
}

type transcribeResultMsg struct {
	gen  uint64
	text string
	err  error
}

func pollTickCmd(interval time.Duration, gen uint64) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return pollTickMsg{gen: gen}
	})
}

func sampleTickCmd(interval time.Duration, gen uint64) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return sampleTickMsg{gen: gen}
	})
}

func spinnerTickCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func sendFeedbackCmd(ctx context.Context, s *studio.Session, ticket orchestrator.Ticket) tea.Cmd {
	return func() tea.Msg {
		taskID, err := s.SendFeedback(ctx, ticket)
		return submitResultMsg{gen: ticket.Generation, taskID: taskID, err: err}
	}
}

func fetchStatusCmd(ctx context.Context, s *studio.Session, gen uint64, taskID string) tea.Cmd {
	return func() tea.Msg {
		task, err := s.FetchStatus(ctx, taskID)
		return statusResultMsg{gen: gen, task: task, err: err}
	}
}

func transcribeCmd(ctx context.Context, s *studio.Session, gen uint64, clip audio.Clip) tea.Cmd {
	return func() tea.Msg {
		text, err := s.Transcribe(ctx, clip)
		return transcribeResultMsg{gen: gen, text: text, err: err}
	}
}
