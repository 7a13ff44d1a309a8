package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jbonatakis/carfinder/internal/atomicfile"
	"github.com/jbonatakis/carfinder/internal/genome"
	"github.com/jbonatakis/carfinder/internal/logging"
)

// FileStore keeps each slot in its own JSON file inside dir.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	return &FileStore{dir: dir, logger: logging.OrDiscard(logger)}
}

func (s *FileStore) slotPath(slot string) string {
	return filepath.Join(s.dir, slot+".json")
}

func (s *FileStore) Load(ctx context.Context) (genome.SessionState, bool) {
	return DecodeSlots(func(slot string) ([]byte, bool) {
		b, err := os.ReadFile(s.slotPath(slot))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("read session slot", "slot", slot, "error", err)
			}
			return nil, false
		}
		return b, true
	}, s.logger)
}

func (s *FileStore) Save(ctx context.Context, state genome.SessionState) error {
	slots, err := EncodeSlots(state)
	if err != nil {
		return err
	}
	for _, slot := range Slots {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := atomicfile.WriteFile(s.slotPath(slot), slots[slot], 0o644); err != nil {
			return fmt.Errorf("write %s slot: %w", slot, err)
		}
	}
	return nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	var errs []error
	for _, slot := range Slots {
		if err := os.Remove(s.slotPath(slot)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s slot: %w", slot, err))
		}
	}
	return errors.Join(errs...)
}

func (s *FileStore) Close() error { return nil }
