package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jbonatakis/carfinder/internal/genome"
	"github.com/jbonatakis/carfinder/internal/logging"

	_ "modernc.org/sqlite"
)

const sqlSchema = `CREATE TABLE IF NOT EXISTS session_slots (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL
)`

var sqlPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// SQLStore keeps the slots as rows of a single SQLite table and writes all
// of them in one transaction.
type SQLStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// OpenSQLStore opens (creating if needed) the database at path. Use ":memory:"
// for a throwaway store.
func OpenSQLStore(path string, logger *slog.Logger) (*SQLStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("session: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	for _, pragma := range sqlPragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("session: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: schema: %w", err)
	}
	return &SQLStore{db: db, logger: logging.OrDiscard(logger), now: time.Now}, nil
}

func (s *SQLStore) Load(ctx context.Context) (genome.SessionState, bool) {
	rows := map[string][]byte{}
	result, err := s.db.QueryContext(ctx, `SELECT key, value FROM session_slots`)
	if err != nil {
		s.logger.Warn("read session slots", "error", err)
		return genome.ZeroState(), false
	}
	defer result.Close()
	for result.Next() {
		var key string
		var value []byte
		if err := result.Scan(&key, &value); err != nil {
			s.logger.Warn("scan session slot", "error", err)
			continue
		}
		rows[key] = value
	}
	if err := result.Err(); err != nil {
		s.logger.Warn("iterate session slots", "error", err)
	}
	return DecodeSlots(func(slot string) ([]byte, bool) {
		b, ok := rows[slot]
		return b, ok
	}, s.logger)
}

func (s *SQLStore) Save(ctx context.Context, state genome.SessionState) error {
	slots, err := EncodeSlots(state)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: begin: %w", err)
	}
	defer tx.Rollback()

	stamp := s.now().UTC().Format(time.RFC3339Nano)
	for _, slot := range Slots {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO session_slots (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			slot, slots[slot], stamp)
		if err != nil {
			return fmt.Errorf("session: write %s slot: %w", slot, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session: commit: %w", err)
	}
	return nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_slots`); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
