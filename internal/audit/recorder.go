// Package audit persists a per-invocation log of tool calls to SQLite.
// Recording is best-effort; a failed insert is logged and never surfaced
// to the caller of the tool.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS tool_invocations (
	id          TEXT PRIMARY KEY,
	tool        TEXT NOT NULL,
	operation   TEXT NOT NULL,
	workspace   TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tool_invocations_created_at ON tool_invocations(created_at);
`

// Invocation is one recorded tool call.
type Invocation struct {
	ID        string
	Tool      string
	Operation string
	Workspace string
	Duration  time.Duration
	Err       string
	CreatedAt time.Time
}

// Recorder writes invocations to a SQLite database. A nil *Recorder is
// valid and records nothing, so callers never need to branch on whether
// auditing is configured.
type Recorder struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRecorder opens (or creates) the database at path and ensures the
// schema exists.
func NewRecorder(path string, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	return &Recorder{db: db, logger: logger}, nil
}

// Record inserts one invocation row. Safe on a nil receiver.
func (r *Recorder) Record(ctx context.Context, inv Invocation) {
	if r == nil {
		return
	}

	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tool_invocations (id, tool, operation, workspace, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Tool, inv.Operation, inv.Workspace,
		inv.Duration.Milliseconds(), inv.Err, inv.CreatedAt,
	)
	if err != nil {
		r.logger.Warn("failed to record tool invocation",
			slog.String("tool", inv.Tool),
			slog.String("operation", inv.Operation),
			slog.String("error", err.Error()))
	}
}

// Recent returns the newest invocations, up to limit.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Invocation, error) {
	if r == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tool, operation, workspace, duration_ms, error, created_at
		FROM tool_invocations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query invocations: %w", err)
	}
	defer rows.Close()

	var out []Invocation
	for rows.Next() {
		var inv Invocation
		var durationMS int64
		if err := rows.Scan(&inv.ID, &inv.Tool, &inv.Operation, &inv.Workspace,
			&durationMS, &inv.Err, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}
		inv.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Close closes the underlying database. Safe on a nil receiver.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	return r.db.Close()
}
