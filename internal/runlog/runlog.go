package runlog

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema

const runLogSchema = `
CREATE TABLE IF NOT EXISTS run_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id  TEXT NOT NULL,
	decision    TEXT NOT NULL,
	detail      TEXT,
	duration_ms INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);
`

// #endregion schema

// #region entry

// Entry is a single row in the run_log table. Decision is "ok" or the
// failing error kind.
type Entry struct {
	RequestID  string
	Decision   string
	Detail     string
	DurationMs int64
	CreatedAt  time.Time
}

// #endregion entry

// #region log

// Log records per-request provenance rows.
type Log struct {
	db *sql.DB
}

// NewLog initializes the run_log table and returns a Log.
func NewLog(db *sql.DB) (*Log, error) {
	if _, err := db.Exec(runLogSchema); err != nil {
		return nil, fmt.Errorf("migrate run log: %w", err)
	}
	return &Log{db: db}, nil
}

// Record writes one run_log row.
func (l *Log) Record(entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.Exec(
		`INSERT INTO run_log (request_id, decision, detail, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.RequestID,
		entry.Decision,
		nullIfEmpty(entry.Detail),
		entry.DurationMs,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log run: %w", err)
	}
	return nil
}

// Recent returns the most recent run_log rows.
func (l *Log) Recent(limit int) ([]Entry, error) {
	rows, err := l.db.Query(
		`SELECT request_id, decision, detail, duration_ms, created_at
		 FROM run_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list run log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var detail sql.NullString
		var createdStr string
		if err := rows.Scan(&e.RequestID, &e.Decision, &detail, &e.DurationMs, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if detail.Valid {
			e.Detail = detail.String
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion log

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
