package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/n1kko777/sber-agents/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists whole threads as JSON rows. One row per thread and a
// single REPLACE per Put keeps writes atomic without explicit transactions.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Set connection pool (single connection for SQLite)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS threads (
		id          TEXT PRIMARY KEY,
		turns       TEXT NOT NULL,
		interrupt   TEXT,
		model_calls INTEGER NOT NULL DEFAULT 0,
		tool_calls  INTEGER NOT NULL DEFAULT 0,
		updated_at  DATETIME NOT NULL
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create threads table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, threadID string) (*domain.Thread, error) {
	var (
		turnsJSON     string
		interruptJSON sql.NullString
		thread        domain.Thread
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, turns, interrupt, model_calls, tool_calls, updated_at FROM threads WHERE id = ?`,
		threadID)
	err := row.Scan(&thread.ID, &turnsJSON, &interruptJSON, &thread.ModelCalls, &thread.ToolCalls, &thread.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load thread %s: %w", threadID, err)
	}

	if err := json.Unmarshal([]byte(turnsJSON), &thread.Turns); err != nil {
		return nil, fmt.Errorf("decode turns for thread %s: %w", threadID, err)
	}
	if interruptJSON.Valid && interruptJSON.String != "" {
		var req domain.InterruptRequest
		if err := json.Unmarshal([]byte(interruptJSON.String), &req); err != nil {
			return nil, fmt.Errorf("decode interrupt for thread %s: %w", threadID, err)
		}
		thread.PendingInterrupt = &req
	}
	return &thread, nil
}

func (s *SQLiteStore) Put(ctx context.Context, thread *domain.Thread) error {
	if thread == nil || thread.ID == "" {
		return fmt.Errorf("checkpoint put: thread id is required")
	}

	turnsJSON, err := json.Marshal(thread.Turns)
	if err != nil {
		return fmt.Errorf("encode turns for thread %s: %w", thread.ID, err)
	}
	var interruptJSON any
	if thread.PendingInterrupt != nil {
		raw, err := json.Marshal(thread.PendingInterrupt)
		if err != nil {
			return fmt.Errorf("encode interrupt for thread %s: %w", thread.ID, err)
		}
		interruptJSON = string(raw)
	}

	updatedAt := thread.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO threads (id, turns, interrupt, model_calls, tool_calls, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		thread.ID, string(turnsJSON), interruptJSON, thread.ModelCalls, thread.ToolCalls, updatedAt)
	if err != nil {
		return fmt.Errorf("store thread %s: %w", thread.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close checkpoint database: %w", err)
	}
	return nil
}
