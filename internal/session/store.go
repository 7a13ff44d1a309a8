// Package session persists the design session across restarts.
//
// State is kept in three independent slots (history, genome, last status).
// Callers treat them as one unit through Store; a slot that is missing or
// unreadable degrades to its zero value instead of failing the load.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jbonatakis/carfinder/internal/config"
	"github.com/jbonatakis/carfinder/internal/genome"
	"github.com/jbonatakis/carfinder/internal/logging"
)

const (
	SlotHistory    = "history"
	SlotGenome     = "genome"
	SlotLastStatus = "last_status"
)

// Slots lists every persisted key in write order.
var Slots = []string{SlotHistory, SlotGenome, SlotLastStatus}

// Store loads and saves SessionState.
type Store interface {
	// Load never fails: ok is false when nothing was persisted.
	Load(ctx context.Context) (state genome.SessionState, ok bool)
	Save(ctx context.Context, state genome.SessionState) error
	Clear(ctx context.Context) error
	Close() error
}

// Dir is where session data for projectRoot lives.
func Dir(projectRoot string) string {
	return filepath.Join(projectRoot, config.DirName, "session")
}

// Open returns the store selected by backend for projectRoot.
func Open(projectRoot string, backend string, logger *slog.Logger) (Store, error) {
	switch backend {
	case "", config.SessionBackendFile:
		return NewFileStore(Dir(projectRoot), logger), nil
	case config.SessionBackendSQLite:
		return OpenSQLStore(filepath.Join(Dir(projectRoot), "session.db"), logger)
	default:
		return nil, fmt.Errorf("unknown session backend %q", backend)
	}
}

// EncodeSlots renders state into one canonical document per slot. Encoding
// the result of a decode yields the same bytes.
func EncodeSlots(state genome.SessionState) (map[string][]byte, error) {
	history := state.History
	if history == nil {
		history = []genome.HistoryEntry{}
	}
	values := map[string]any{
		SlotHistory:    history,
		SlotGenome:     state.Genome,
		SlotLastStatus: state.LastStatus,
	}
	out := make(map[string][]byte, len(values))
	for _, slot := range Slots {
		b, err := json.MarshalIndent(values[slot], "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s slot: %w", slot, err)
		}
		out[slot] = append(b, '\n')
	}
	return out, nil
}

// DecodeSlots rebuilds state from whatever slots lookup can provide.
func DecodeSlots(lookup func(slot string) ([]byte, bool), logger *slog.Logger) (genome.SessionState, bool) {
	logger = logging.OrDiscard(logger)
	state := genome.ZeroState()
	present := false

	if b, ok := lookup(SlotHistory); ok {
		present = true
		var history []genome.HistoryEntry
		if err := decodeStrict(b, &history); err != nil {
			logger.Warn("session slot unreadable, using empty history", "slot", SlotHistory, "error", err)
		} else if history != nil {
			state.History = history
		}
	}
	if b, ok := lookup(SlotGenome); ok {
		present = true
		var g genome.DesignGenome
		if err := decodeStrict(b, &g); err != nil {
			logger.Warn("session slot unreadable, using zero genome", "slot", SlotGenome, "error", err)
		} else {
			state.Genome = genome.CloneGenome(g)
		}
	}
	if b, ok := lookup(SlotLastStatus); ok {
		present = true
		var last *genome.Task
		if err := decodeStrict(b, &last); err != nil {
			logger.Warn("session slot unreadable, clearing last status", "slot", SlotLastStatus, "error", err)
		} else {
			state.LastStatus = last
		}
	}
	return state, present
}

func decodeStrict(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data")
	}
	return nil
}
