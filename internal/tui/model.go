package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jbonatakis/carfinder/internal/audio"
	"github.com/jbonatakis/carfinder/internal/genome"
	"github.com/jbonatakis/carfinder/internal/orchestrator"
	"github.com/jbonatakis/carfinder/internal/studio"
)

type Mode int

const (
	ModeNormal Mode = iota
	ModeNotice
	ModeConfirmReset
)

type Options struct {
	// ResolveURL turns service-relative image references into absolute URLs.
	ResolveURL func(string) string
}

type Model struct {
	session      *studio.Session
	resolveURL   func(string) string
	ctx          context.Context
	cancel       context.CancelFunc
	input        textarea.Model
	selector     genome.ViewSelector
	mode         Mode
	notice       *Notice
	flash        string
	windowWidth  int
	windowHeight int
	spinning     bool
	spinnerIndex int
}

func NewModel(session *studio.Session, opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())
	resolve := opts.ResolveURL
	if resolve == nil {
		resolve = func(ref string) string { return ref }
	}

	ta := textarea.New()
	ta.CharLimit = 2000
	ta.ShowLineNumbers = false
	ta.SetWidth(60)
	ta.SetHeight(3)
	ta.Focus()

	m := Model{
		session:    session,
		resolveURL: resolve,
		ctx:        ctx,
		cancel:     cancel,
		input:      ta,
		selector:   genome.Current(),
	}
	m.refreshPlaceholder()
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if gen, ok := m.session.Resumed(); ok {
		cmds = append(cmds, pollTickCmd(m.session.PollInterval(), gen))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = typed.Width
		m.windowHeight = typed.Height
		if typed.Width > 8 {
			m.input.SetWidth(typed.Width - 6)
		}
		return m, nil
	case spinnerTickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		m.spinnerIndex = (m.spinnerIndex + 1) % len(spinnerFrames)
		return m, spinnerTickCmd()
	case submitResultMsg:
		return m.handleSubmitResult(typed)
	case pollTickMsg:
		if !m.session.Polling(typed.gen) {
			return m, nil
		}
		return m, fetchStatusCmd(m.ctx, m.session, typed.gen, m.session.TaskID())
	case statusResultMsg:
		return m.handleStatusResult(typed)
	case sampleTickMsg:
		if !m.session.Sample(typed.gen) {
			return m, nil
		}
		return m, sampleTickCmd(m.session.SampleInterval(), typed.gen)
	case transcribeResultMsg:
		value, err := m.session.Transcribed(typed.gen, m.input.Value(), typed.text, typed.err)
		if value != m.input.Value() {
			m.input.SetValue(value)
			m.input.CursorEnd()
		}
		if err != nil {
			m.showNotice(errorNotice("Transcription failed", err))
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(typed)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.shutdown()
		return m, tea.Quit
	}

	switch m.mode {
	case ModeNotice:
		switch key {
		case "enter", "esc":
			m.notice = nil
			m.mode = ModeNormal
		}
		return m, nil
	case ModeConfirmReset:
		switch key {
		case "y", "Y":
			m.mode = ModeNormal
			return m.reset()
		case "n", "N", "esc":
			m.mode = ModeNormal
		}
		return m, nil
	}

	m.flash = ""
	switch key {
	case "ctrl+s":
		return m.submit()
	case "ctrl+r":
		return m.toggleRecording()
	case "pgup", "pageup":
		m.browse(-1)
		return m, nil
	case "pgdown", "pagedown":
		m.browse(1)
		return m, nil
	case "ctrl+o":
		m.selector = genome.Current()
		return m, nil
	case "ctrl+x":
		m.mode = ModeConfirmReset
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	ticket, err := m.session.Submit(m.input.Value())
	switch {
	case errors.Is(err, orchestrator.ErrInFlight):
		return m, nil
	case errors.Is(err, orchestrator.ErrBlocked):
		m.flash = "Stop recording before generating."
		return m, nil
	case errors.Is(err, orchestrator.ErrEmptyFeedback):
		m.flash = "Describe what to change before the next round."
		return m, nil
	case err != nil:
		m.showNotice(errorNotice("Generation request failed", err))
		return m, nil
	}
	m.selector = genome.Current()
	spin := m.startSpinner()
	return m, tea.Batch(sendFeedbackCmd(m.ctx, m.session, ticket), spin)
}

func (m Model) handleSubmitResult(msg submitResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if m.session.Rejected(msg.gen, msg.err) {
			m.showNotice(errorNotice("Generation request failed", msg.err))
		}
		return m, nil
	}
	if !m.session.Accepted(msg.gen, msg.taskID) {
		return m, nil
	}
	m.input.Reset()
	return m, pollTickCmd(m.session.PollInterval(), msg.gen)
}

func (m Model) handleStatusResult(msg statusResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if m.session.PollError(msg.gen, msg.err) {
			return m, pollTickCmd(m.session.PollInterval(), msg.gen)
		}
		return m, nil
	}
	switch m.session.Observe(msg.gen, msg.task) {
	case orchestrator.OutcomeProgress:
		return m, pollTickCmd(m.session.PollInterval(), msg.gen)
	case orchestrator.OutcomeCompleted:
		m.selector = genome.Current()
		m.refreshPlaceholder()
	case orchestrator.OutcomeFailed:
		reason := strings.TrimSpace(msg.task.Error)
		if reason == "" {
			reason = "the service did not report a reason"
		}
		m.showNotice(&Notice{Title: "Generation failed", Message: reason, IsError: true})
	}
	return m, nil
}

func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	if m.session.Transcribing() {
		return m, nil
	}
	if m.session.Recording() {
		gen, clip, err := m.session.StopRecording()
		if errors.Is(err, audio.ErrEmptyClip) {
			m.flash = "Nothing was recorded."
			return m, nil
		}
		if err != nil {
			m.showNotice(errorNotice("Recording failed", err))
			return m, nil
		}
		spin := m.startSpinner()
		return m, tea.Batch(transcribeCmd(m.ctx, m.session, gen, clip), spin)
	}

	gen, err := m.session.StartRecording(m.ctx)
	if errors.Is(err, audio.ErrBusy) {
		m.flash = "Wait for the current round before recording."
		return m, nil
	}
	if err != nil {
		var perm *audio.PermissionError
		if errors.As(err, &perm) {
			m.showNotice(errorNotice("Microphone unavailable", err))
		} else {
			m.showNotice(errorNotice("Recording failed", err))
		}
		return m, nil
	}
	return m, sampleTickCmd(m.session.SampleInterval(), gen)
}

func (m Model) reset() (tea.Model, tea.Cmd) {
	err := m.session.Reset(m.ctx)
	m.selector = genome.Current()
	m.input.Reset()
	m.refreshPlaceholder()
	if err != nil {
		m.showNotice(errorNotice("Reset incomplete", err))
	}
	return m, nil
}

// browse moves the selection through the history list; negative steps move up.
func (m *Model) browse(step int) {
	entries := m.session.Entries()
	pos := selectedPosition(entries, m.selector)
	pos += step
	if pos < 0 {
		pos = 0
	}
	if pos >= len(entries) {
		pos = len(entries) - 1
	}
	m.selector = entries[pos].Selector
}

func selectedPosition(entries []genome.Entry, sel genome.ViewSelector) int {
	for i, e := range entries {
		if e.Selector == sel {
			return i
		}
	}
	return 0
}

func (m *Model) showNotice(n *Notice) {
	m.notice = n
	m.mode = ModeNotice
}

func (m *Model) startSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return spinnerTickCmd()
}

func (m Model) busy() bool {
	return m.session.InFlight() || m.session.Transcribing()
}

func (m *Model) refreshPlaceholder() {
	if m.session.Genome().Round == 0 {
		m.input.Placeholder = "Type what you like or press ctrl+s to start Round 1..."
		return
	}
	m.input.Placeholder = "What should change in the next round?"
}

func (m Model) shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.session.Cancel()
}

func (m Model) View() string {
	if m.mode == ModeNotice {
		if modal := RenderNotice(m); modal != "" {
			return modal
		}
	}
	if m.mode == ModeConfirmReset {
		return RenderResetConfirmModal(m)
	}

	inputBox := renderInput(m)
	bar := RenderBottomBar(m)

	if m.windowWidth <= 0 || m.windowHeight <= 0 {
		return strings.Join([]string{RenderHistoryView(m), RenderDiscoveryView(m), inputBox, bar}, "\n\n")
	}

	availableHeight := m.windowHeight - lipgloss.Height(inputBox) - 4
	if availableHeight < 3 {
		return inputBox + "\n" + bar
	}
	leftWidth, rightWidth := splitPaneWidths(m.windowWidth)
	left := renderPane(RenderHistoryView(m), leftWidth, availableHeight, "History", false)
	right := renderPane(RenderDiscoveryView(m), rightWidth, availableHeight, "Discovery", true)
	content := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return content + "\n" + inputBox + "\n" + bar
}
