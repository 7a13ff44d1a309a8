package genome

import (
	"bytes"
	"encoding/json"
)

// CloneGenome returns a deep copy of g with nil lists normalised to empty and
// exploration entries compacted.
func CloneGenome(g DesignGenome) DesignGenome {
	out := normalizeGenome(g)
	out.ConfirmedLikes = append([]string{}, out.ConfirmedLikes...)
	out.HardRejections = append([]string{}, out.HardRejections...)
	history := make([]json.RawMessage, 0, len(out.ExplorationHistory))
	for _, raw := range out.ExplorationHistory {
		history = append(history, compactRaw(raw))
	}
	out.ExplorationHistory = history
	return out
}

// CloneTask returns a deep copy of t.
func CloneTask(t Task) Task {
	out := t
	if t.Images != nil {
		out.Images = append([]Image{}, t.Images...)
	}
	if t.UpdatedState != nil {
		g := CloneGenome(*t.UpdatedState)
		out.UpdatedState = &g
	}
	return out
}

func cloneTaskPtr(t *Task) *Task {
	if t == nil {
		return nil
	}
	out := CloneTask(*t)
	return &out
}

// CloneState returns a deep copy of s.
func CloneState(s SessionState) SessionState {
	out := SessionState{
		Genome:     CloneGenome(s.Genome),
		History:    make([]HistoryEntry, 0, len(s.History)),
		LastStatus: cloneTaskPtr(s.LastStatus),
	}
	for _, entry := range s.History {
		out.History = append(out.History, CloneTask(entry))
	}
	return out
}

func compactRaw(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return append(json.RawMessage(nil), raw...)
	}
	return json.RawMessage(buf.Bytes())
}
