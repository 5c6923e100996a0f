package model

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/config"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/fault"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/normalize"
)

// #region predictions

// Predictions is the model manager's per-request output: named series plus
// the identity of the model that produced them.
type Predictions struct {
	Series       map[string][]float64
	ModelName    string
	ModelVersion string
}

// #endregion predictions

// #region manager

// Manager owns the serving model and its version registry.
type Manager struct {
	registry *Registry
	current  *Model
}

// NewManager creates a Manager. When the config names a model it is loaded
// and registered; otherwise the active registry version, if any, is restored.
// With neither, the manager starts empty and Predict fails until UpdateModel.
func NewManager(cfg config.ModelsConfig, registry *Registry) (*Manager, error) {
	m := &Manager{registry: registry}

	if cfg.ModelPath != "" {
		if err := m.UpdateModel(cfg.ModelPath); err != nil {
			return nil, fmt.Errorf("load configured model: %w", err)
		}
		return m, nil
	}

	rec, err := registry.GetActive()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, nil
		}
		return nil, fmt.Errorf("restore active model: %w", err)
	}
	mod, err := Parse([]byte(rec.Payload))
	if err != nil {
		return nil, fmt.Errorf("restore active model: %w", err)
	}
	m.current = &mod
	log.Printf("[MODEL] restored %s (version %s)", mod.Name, rec.VersionID)
	return m, nil
}

// #endregion manager

// #region predict

// Predict scores the table with the serving model. Failures carry the
// prediction kind so centralized recovery can dispatch on them.
func (m *Manager) Predict(t normalize.Table) (Predictions, error) {
	if m.current == nil {
		return Predictions{}, fault.New(fault.KindPrediction, "no model loaded")
	}
	if t.Rows == 0 {
		return Predictions{}, fault.New(fault.KindPrediction, "empty table")
	}

	scores := m.current.Score(t)
	return Predictions{
		Series:       map[string][]float64{"score": scores},
		ModelName:    m.current.Name,
		ModelVersion: m.current.Version,
	}, nil
}

// #endregion predict

// #region update-model

// UpdateModel hot-swaps the serving model from a model file. The new version
// is registered and activated before the in-memory swap; on any failure the
// previous model keeps serving.
func (m *Manager) UpdateModel(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read model %s: %w", path, err)
	}
	mod, err := Parse(data)
	if err != nil {
		return fmt.Errorf("parse model %s: %w", path, err)
	}

	rec := VersionRecord{
		VersionID:  uuid.New().String(),
		Name:       mod.Name,
		SourcePath: path,
		Payload:    string(data),
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.registry.Register(rec); err != nil {
		return fmt.Errorf("register model %s: %w", path, err)
	}

	m.current = &mod
	log.Printf("[MODEL] serving %s (version %s) from %s", mod.Name, rec.VersionID, path)
	return nil
}

// #endregion update-model

// #region rollback

// RollbackTo restores a previously registered version into memory and
// repoints the registry.
func (m *Manager) RollbackTo(versionID string) error {
	if err := m.registry.Rollback(versionID); err != nil {
		return err
	}
	rec, err := m.registry.GetVersion(versionID)
	if err != nil {
		return err
	}
	mod, err := Parse([]byte(rec.Payload))
	if err != nil {
		return fmt.Errorf("rollback to %s: %w", versionID, err)
	}
	m.current = &mod
	log.Printf("[MODEL] rolled back to %s (version %s)", mod.Name, versionID)
	return nil
}

// #endregion rollback

// #region active

// Active returns the serving model's name and version, or ok=false when
// no model is loaded.
func (m *Manager) Active() (name, version string, ok bool) {
	if m.current == nil {
		return "", "", false
	}
	return m.current.Name, m.current.Version, true
}

// #endregion active
