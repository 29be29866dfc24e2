// Package auditlog persists a record of every LLM gateway call so that a
// run's cost and failure profile can be inspected after the fact.
package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abhisek/benchgen/internal/llm"
)

const schema = `
CREATE TABLE IF NOT EXISTS llm_requests (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp     TEXT NOT NULL,
	purpose       TEXT NOT NULL,
	kind          TEXT NOT NULL,
	model         TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	latency_ms    INTEGER NOT NULL DEFAULT 0,
	success       INTEGER NOT NULL,
	error_message TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_llm_requests_purpose ON llm_requests(purpose);
`

// Log is a SQLite-backed llm.Recorder.
type Log struct {
	db *sql.DB
}

// Open creates or opens the audit database at path.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize audit schema: %w", err)
	}

	return &Log{db: db}, nil
}

// Close releases the underlying database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

// Append records one gateway call.
func (l *Log) Append(ctx context.Context, rec llm.RequestRecord) error {
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO llm_requests
		 (timestamp, purpose, kind, model, input_tokens, output_tokens, latency_ms, success, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.Purpose,
		rec.Kind,
		rec.Model,
		rec.InputTokens,
		rec.OutputTokens,
		rec.LatencyMs,
		success,
		rec.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("append llm request: %w", err)
	}
	return nil
}

// Entry is a stored request record with its row ID.
type Entry struct {
	ID int64
	llm.RequestRecord
}

// QueryOpts narrows a Recent query.
type QueryOpts struct {
	Limit   int    // 0 means 50
	Purpose string // empty matches all
}

// Recent returns the newest entries, newest first.
func (l *Log) Recent(ctx context.Context, opts QueryOpts) ([]Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, timestamp, purpose, kind, model, input_tokens, output_tokens, latency_ms, success, error_message
	          FROM llm_requests`
	args := []any{}
	if opts.Purpose != "" {
		query += ` WHERE purpose = ?`
		args = append(args, opts.Purpose)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query llm requests: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts string
		var success int
		if err := rows.Scan(&e.ID, &ts, &e.Purpose, &e.Kind, &e.Model,
			&e.InputTokens, &e.OutputTokens, &e.LatencyMs, &success, &e.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan llm request: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		e.Success = success == 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Usage aggregates calls per purpose.
type Usage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int
}

// UsageByPurpose returns per-purpose call and token totals, busiest first.
func (l *Log) UsageByPurpose(ctx context.Context) ([]Usage, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT purpose, COUNT(*), SUM(input_tokens), SUM(output_tokens), CAST(AVG(latency_ms) AS INTEGER)
		 FROM llm_requests
		 GROUP BY purpose
		 ORDER BY COUNT(*) DESC, purpose`)
	if err != nil {
		return nil, fmt.Errorf("query llm usage: %w", err)
	}
	defer rows.Close()

	var usage []Usage
	for rows.Next() {
		var u Usage
		if err := rows.Scan(&u.Purpose, &u.Calls, &u.InputTokens, &u.OutputTokens, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan llm usage: %w", err)
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}
