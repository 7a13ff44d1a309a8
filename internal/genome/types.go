package genome

import (
	"encoding/json"
	"strings"
)

// Status is the remote task status. Only queued, completed and failed carry
// meaning to the client; the service is free to report any other label while
// a task is running ("planning", "Generating designs...", ...).
type Status string

const (
	StatusQueued    Status = "queued"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transition can follow s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Label returns the text shown while a task is in flight.
func (s Status) Label() string {
	switch s {
	case "":
		return "AI is thinking..."
	case StatusCompleted:
		return "Finalizing..."
	default:
		return strings.TrimSpace(string(s))
	}
}

// DesignGenome is the accumulated preference model. The client replaces it
// as a unit whenever the service returns a new one and only ever authors the
// zero value itself.
type DesignGenome struct {
	Round              int               `json:"round"`
	DesignSummary      string            `json:"design_summary"`
	ConfirmedLikes     []string          `json:"confirmed_likes"`
	HardRejections     []string          `json:"hard_rejections"`
	ExplorationHistory []json.RawMessage `json:"exploration_history"`
}

// ZeroGenome returns the initial genome with empty (non-nil) lists.
func ZeroGenome() DesignGenome {
	return DesignGenome{
		ConfirmedLikes:     []string{},
		HardRejections:     []string{},
		ExplorationHistory: []json.RawMessage{},
	}
}

type genomeJSON DesignGenome

// MarshalJSON always emits lists as arrays so a zero genome encodes the same
// way whether or not it went through a decode.
func (g DesignGenome) MarshalJSON() ([]byte, error) {
	out := genomeJSON(normalizeGenome(g))
	return json.Marshal(out)
}

func normalizeGenome(g DesignGenome) DesignGenome {
	if g.ConfirmedLikes == nil {
		g.ConfirmedLikes = []string{}
	}
	if g.HardRejections == nil {
		g.HardRejections = []string{}
	}
	if g.ExplorationHistory == nil {
		g.ExplorationHistory = []json.RawMessage{}
	}
	return g
}

// Image is one generated candidate.
type Image struct {
	URL    string `json:"url"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Prompt string `json:"prompt"`
}

// Task mirrors the status document served by GET /api/status/{task_id}.
type Task struct {
	ID           string        `json:"id,omitempty"`
	Status       Status        `json:"status"`
	Round        int           `json:"round"`
	Images       []Image       `json:"images,omitempty"`
	UpdatedState *DesignGenome `json:"updated_state,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// HistoryEntry is a completed task snapshot. Entries are only ever produced
// by History.Append, which stores a private copy.
type HistoryEntry = Task

// SessionState is the persisted aggregate.
type SessionState struct {
	Genome     DesignGenome
	History    []HistoryEntry
	LastStatus *Task
}

// ZeroState is the state of a fresh or reset session.
func ZeroState() SessionState {
	return SessionState{
		Genome:  ZeroGenome(),
		History: []HistoryEntry{},
	}
}
