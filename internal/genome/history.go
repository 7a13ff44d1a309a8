package genome

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrNotCompleted = errors.New("only completed tasks can be archived")

// ViewSelector picks what the discovery pane shows: the current round or
// one archived round by index.
type ViewSelector struct {
	archived bool
	index    int
}

func Current() ViewSelector { return ViewSelector{} }

func Archived(index int) ViewSelector { return ViewSelector{archived: true, index: index} }

func (s ViewSelector) IsCurrent() bool { return !s.archived }

// Index returns the history index for archived selectors.
func (s ViewSelector) Index() (int, bool) {
	if !s.archived {
		return 0, false
	}
	return s.index, true
}

func (s ViewSelector) String() string {
	if !s.archived {
		return "current"
	}
	return strconv.Itoa(s.index)
}

// View is a resolved selector. Result may be nil when nothing has been
// submitted yet.
type View struct {
	Selector ViewSelector
	Result   *Task
	Genome   DesignGenome
}

// Archived reports whether the view shows a history entry.
func (v View) Archived() bool { return !v.Selector.IsCurrent() }

// Entry is one row of the browsable history list.
type Entry struct {
	Label    string
	Round    int
	Selector ViewSelector
}

// History owns the live genome, the last observed task and the append-only
// log of completed rounds.
type History struct {
	genome     DesignGenome
	entries    []HistoryEntry
	lastStatus *Task
}

// NewHistory builds a history from persisted state. The state is copied.
func NewHistory(state SessionState) *History {
	cloned := CloneState(state)
	return &History{
		genome:     cloned.Genome,
		entries:    cloned.History,
		lastStatus: cloned.LastStatus,
	}
}

// State returns a copy suitable for persistence.
func (h *History) State() SessionState {
	return CloneState(SessionState{
		Genome:     h.genome,
		History:    h.entries,
		LastStatus: h.lastStatus,
	})
}

func (h *History) Len() int { return len(h.entries) }

// Entry returns a copy of the archived round at index i.
func (h *History) Entry(i int) (HistoryEntry, bool) {
	if i < 0 || i >= len(h.entries) {
		return HistoryEntry{}, false
	}
	return CloneTask(h.entries[i]), true
}

func (h *History) Genome() DesignGenome { return CloneGenome(h.genome) }

// SetGenome replaces the live genome wholesale.
func (h *History) SetGenome(g DesignGenome) { h.genome = CloneGenome(g) }

func (h *History) LastStatus() *Task { return cloneTaskPtr(h.lastStatus) }

func (h *History) SetLastStatus(t *Task) { h.lastStatus = cloneTaskPtr(t) }

// Append archives a completed task. Prior entries are never touched.
func (h *History) Append(task Task) error {
	if task.Status != StatusCompleted {
		return fmt.Errorf("append task %q with status %q: %w", task.ID, task.Status, ErrNotCompleted)
	}
	h.entries = append(h.entries, CloneTask(task))
	return nil
}

// Resolve maps a selector to what should be displayed. An archived entry
// without its own genome snapshot falls back to the live genome. Selectors
// pointing outside the history resolve to the current view.
func (h *History) Resolve(sel ViewSelector) View {
	if i, ok := sel.Index(); ok && i >= 0 && i < len(h.entries) {
		entry := CloneTask(h.entries[i])
		g := h.Genome()
		if entry.UpdatedState != nil {
			g = CloneGenome(*entry.UpdatedState)
		}
		return View{Selector: sel, Result: &entry, Genome: g}
	}
	return View{Selector: Current(), Result: h.LastStatus(), Genome: h.Genome()}
}

// CurrentRound is the round number shown on the "current" entry. While a task
// is in flight that is the round being generated.
func (h *History) CurrentRound() int {
	if h.lastStatus == nil {
		return h.genome.Round
	}
	if !h.lastStatus.Status.IsTerminal() {
		if h.lastStatus.Round > h.genome.Round {
			return h.lastStatus.Round
		}
		return h.genome.Round + 1
	}
	if h.lastStatus.Round > 0 {
		return h.lastStatus.Round
	}
	return h.genome.Round
}

// Entries lists the current round followed by the archive in append order.
// When the current view already shows a completed round, its archived copy
// is left out so the same round is not listed twice. A failed current round
// is marked so it is not mistaken for the archive of the same number.
func (h *History) Entries() []Entry {
	current := h.CurrentRound()
	label := fmt.Sprintf("Current Round %d", current)
	if h.lastStatus != nil && h.lastStatus.Status == StatusFailed {
		label += " (failed)"
	}
	out := make([]Entry, 0, len(h.entries)+1)
	out = append(out, Entry{
		Label:    label,
		Round:    current,
		Selector: Current(),
	})
	showsCompleted := h.lastStatus != nil && h.lastStatus.Status == StatusCompleted
	for i, entry := range h.entries {
		if showsCompleted && entry.Round == current {
			continue
		}
		out = append(out, Entry{
			Label:    fmt.Sprintf("Round %d Archive", entry.Round),
			Round:    entry.Round,
			Selector: Archived(i),
		})
	}
	return out
}

// Reset drops every archived round and returns the genome to its zero state.
func (h *History) Reset() {
	h.genome = ZeroGenome()
	h.entries = []HistoryEntry{}
	h.lastStatus = nil
}
