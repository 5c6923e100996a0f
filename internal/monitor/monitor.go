package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/kibbyd/integration-layer/go-coordinator/internal/config"
)

// #region schema

const healthLogSchema = `
CREATE TABLE IF NOT EXISTS health_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	healthy       INTEGER NOT NULL,
	snapshot_json TEXT NOT NULL,
	checks_json   TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
`

// #endregion schema

// #region types

// Snapshot is the cheap health read consumed by the adaptation step.
type Snapshot struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	Goroutines    int     `json:"goroutines"`
	HeapMB        float64 `json:"heap_mb"`
	Processed     int64   `json:"processed"`
	Failed        int64   `json:"failed"`
	Score         float64 `json:"score"` // success ratio in [0,1], 1 when idle
}

// Check is one named health check with its measured value.
type Check struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Pass   bool    `json:"pass"`
	Detail string  `json:"detail,omitempty"`
}

// Report is the deep snapshot produced by Monitor().
type Report struct {
	Snapshot  Snapshot  `json:"snapshot"`
	Checks    []Check   `json:"checks"`
	Healthy   bool      `json:"healthy"`
	CreatedAt time.Time `json:"created_at"`
}

// #endregion types

// #region monitor

// Monitor tracks process health and persists deep snapshots.
type Monitor struct {
	cfg   config.MonitoringConfig
	db    *sql.DB
	probe Prober // nil when no upstream is configured

	start     time.Time
	processed int64
	failed    int64
}

// NewMonitor initializes the health_log table and returns a Monitor.
// probe may be nil.
func NewMonitor(cfg config.MonitoringConfig, db *sql.DB, probe Prober) (*Monitor, error) {
	if _, err := db.Exec(healthLogSchema); err != nil {
		return nil, fmt.Errorf("migrate health log: %w", err)
	}
	return &Monitor{
		cfg:   cfg,
		db:    db,
		probe: probe,
		start: time.Now(),
	}, nil
}

// Close releases the probe connection, if any.
func (m *Monitor) Close() error {
	if m.probe == nil {
		return nil
	}
	return m.probe.Close()
}

// RecordProcessed counts one successful pipeline run.
func (m *Monitor) RecordProcessed() { m.processed++ }

// RecordFailure counts one failed pipeline run.
func (m *Monitor) RecordFailure() { m.failed++ }

// #endregion monitor

// #region get-health

// GetHealth returns the current cheap snapshot. The error return is part of
// the collaborator contract; the runtime read itself cannot fail.
func (m *Monitor) GetHealth() (Snapshot, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	score := 1.0
	total := m.processed + m.failed
	if total > 0 {
		score = float64(m.processed) / float64(total)
	}

	return Snapshot{
		UptimeSeconds: time.Since(m.start).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		HeapMB:        float64(ms.HeapAlloc) / (1024 * 1024),
		Processed:     m.processed,
		Failed:        m.failed,
		Score:         score,
	}, nil
}

// #endregion get-health

// #region monitor-deep

// Monitor runs the full check set, persists a history row, and returns the
// report. A failing check does not error; only the snapshot machinery or
// the history write can.
func (m *Monitor) Monitor() (Report, error) {
	snap, err := m.GetHealth()
	if err != nil {
		return Report{}, fmt.Errorf("read health: %w", err)
	}

	var checks []Check

	heapPass := snap.HeapMB <= m.cfg.MaxHeapMB
	checks = append(checks, Check{
		Name:  "heap_mb",
		Value: snap.HeapMB,
		Pass:  heapPass,
	})

	goroutinePass := snap.Goroutines <= m.cfg.MaxGoroutines
	checks = append(checks, Check{
		Name:  "goroutines",
		Value: float64(snap.Goroutines),
		Pass:  goroutinePass,
	})

	if m.probe != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		serving, err := m.probe.Check(ctx)
		cancel()
		check := Check{Name: "upstream", Pass: serving}
		if serving {
			check.Value = 1
		}
		if err != nil {
			check.Detail = err.Error()
		}
		checks = append(checks, check)
	}

	healthy := true
	for _, c := range checks {
		if !c.Pass {
			healthy = false
		}
	}

	report := Report{
		Snapshot:  snap,
		Checks:    checks,
		Healthy:   healthy,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.record(report); err != nil {
		return Report{}, fmt.Errorf("record health: %w", err)
	}
	return report, nil
}

func (m *Monitor) record(r Report) error {
	snapJSON, err := json.Marshal(r.Snapshot)
	if err != nil {
		return err
	}
	checksJSON, err := json.Marshal(r.Checks)
	if err != nil {
		return err
	}

	healthy := 0
	if r.Healthy {
		healthy = 1
	}
	_, err = m.db.Exec(
		`INSERT INTO health_log (healthy, snapshot_json, checks_json, created_at)
		 VALUES (?, ?, ?, ?)`,
		healthy, string(snapJSON), string(checksJSON), r.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// #endregion monitor-deep

// #region history

// HistoryRow is one persisted health_log row.
type HistoryRow struct {
	ID        int64
	Healthy   bool
	Snapshot  string
	Checks    string
	CreatedAt time.Time
}

// History returns the most recent health_log rows.
func (m *Monitor) History(limit int) ([]HistoryRow, error) {
	rows, err := m.db.Query(
		`SELECT id, healthy, snapshot_json, checks_json, created_at
		 FROM health_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list health log: %w", err)
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var r HistoryRow
		var healthy int
		var createdStr string
		if err := rows.Scan(&r.ID, &healthy, &r.Snapshot, &r.Checks, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Healthy = healthy == 1
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion history
