// Package logging routes structured logs to a file under the project's
// .carfinder directory; the terminal UI owns stdout and stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jbonatakis/carfinder/internal/config"
)

const fileName = "carfinder.log"

// Path returns the log file location for projectRoot.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, config.DirName, "logs", fileName)
}

// Open creates (or reuses) the log file and returns a JSON logger writing to it.
// The returned closer releases the file handle.
func Open(projectRoot string, level slog.Level) (*slog.Logger, io.Closer, error) {
	path := Path(projectRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: open log file: %w", err)
	}
	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})
	return slog.New(handler), f, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
