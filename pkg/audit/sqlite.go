package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists execution records in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite ledger at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(db)
}

// NewSQLiteStore creates a SQLite-backed store and ensures schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureExecutionSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record stores a single execution record.
func (s *SQLiteStore) Record(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_executions (
			execution_id, session_id, server_name, tool_name, requested_as,
			status, error_text, duration_ms, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.SessionID,
		rec.ServerName,
		rec.ToolName,
		rec.RequestedAs,
		rec.Status,
		rec.Error,
		rec.DurationMs,
		normalizeTime(rec.StartedAt),
		normalizeTime(rec.FinishedAt),
	)
	return err
}

// List returns execution records matching the filter, oldest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	query := `
		SELECT execution_id, session_id, server_name, tool_name, requested_as,
		       status, error_text, duration_ms, started_at, finished_at
		FROM tool_executions
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.ServerName != "" {
		addFilter("server_name = ?", filter.ServerName)
	}
	if filter.Status != "" {
		addFilter("status = ?", filter.Status)
	}
	query += where + " ORDER BY started_at ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec      Record
			started  sql.NullTime
			finished sql.NullTime
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.ServerName,
			&rec.ToolName,
			&rec.RequestedAs,
			&rec.Status,
			&rec.Error,
			&rec.DurationMs,
			&started,
			&finished,
		); err != nil {
			return nil, err
		}
		if started.Valid {
			rec.StartedAt = started.Time
		}
		if finished.Valid {
			rec.FinishedAt = finished.Time
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func ensureExecutionSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tool_executions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			execution_id TEXT NOT NULL,
			session_id TEXT,
			server_name TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			requested_as TEXT,
			status TEXT NOT NULL,
			error_text TEXT,
			duration_ms REAL,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_tool_exec_server ON tool_executions(server_name);
		CREATE INDEX IF NOT EXISTS idx_tool_exec_status ON tool_executions(status);
	`)
	return err
}

func normalizeTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
