package model

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS model_versions (
	version_id   TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	source_path  TEXT NOT NULL,
	payload      TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS active_model (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	version_id   TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES model_versions(version_id)
);
`

// #endregion schema

// #region version-record

// VersionRecord is one row of the model version registry.
type VersionRecord struct {
	VersionID  string
	Name       string
	SourcePath string
	Payload    string
	CreatedAt  time.Time
}

// #endregion version-record

// #region registry

// Registry persists model versions in SQLite and tracks the active one.
type Registry struct {
	db *sql.DB
}

// NewRegistry opens the SQLite database and runs migrations.
func NewRegistry(dbPath string) (*Registry, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Registry{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages
// (run log, health history).
func (r *Registry) DB() *sql.DB {
	return r.db
}

// #endregion registry

// #region register

// Register inserts a new version and flips the active pointer atomically.
func (r *Registry) Register(rec VersionRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO model_versions (version_id, name, source_path, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.VersionID, rec.Name, rec.SourcePath, rec.Payload,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_model (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		rec.VersionID,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}

	return tx.Commit()
}

// #endregion register

// #region get-active

// GetActive reads the active model version. sql.ErrNoRows when none exists.
func (r *Registry) GetActive() (VersionRecord, error) {
	var versionID string
	err := r.db.QueryRow(`SELECT version_id FROM active_model WHERE id = 1`).Scan(&versionID)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("get active: %w", err)
	}
	return r.GetVersion(versionID)
}

// GetVersion retrieves a specific model version by ID.
func (r *Registry) GetVersion(id string) (VersionRecord, error) {
	var rec VersionRecord
	var createdStr string

	err := r.db.QueryRow(
		`SELECT version_id, name, source_path, payload, created_at
		 FROM model_versions WHERE version_id = ?`, id,
	).Scan(&rec.VersionID, &rec.Name, &rec.SourcePath, &rec.Payload, &createdStr)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("get version %s: %w", id, err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// #endregion get-active

// #region rollback

// Rollback sets the active pointer to a previous version.
func (r *Registry) Rollback(targetVersionID string) error {
	var exists int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM model_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s not found", targetVersionID)
	}

	_, err = r.db.Exec(`UPDATE active_model SET version_id = ? WHERE id = 1`, targetVersionID)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback

// #region list-versions

// ListVersions returns the most recent model versions.
func (r *Registry) ListVersions(limit int) ([]VersionRecord, error) {
	rows, err := r.db.Query(
		`SELECT version_id, name, source_path, payload, created_at
		 FROM model_versions ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []VersionRecord
	for rows.Next() {
		var rec VersionRecord
		var createdStr string
		if err := rows.Scan(&rec.VersionID, &rec.Name, &rec.SourcePath, &rec.Payload, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-versions
