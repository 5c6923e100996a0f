package model

import (
	"encoding/json"
	"fmt"

	"github.com/kibbyd/integration-layer/go-coordinator/internal/normalize"
)

// #region model

// Model is a linear scoring model: one weight per input column plus a bias,
// with an optional symmetric clamp on the output.
type Model struct {
	Name    string             `json:"name"`
	Version string             `json:"version"`
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
	Clamp   float64            `json:"clamp"` // 0 = unclamped
}

// Parse decodes and validates a model payload.
func Parse(data []byte) (Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return Model{}, fmt.Errorf("decode model: %w", err)
	}
	if m.Name == "" {
		return Model{}, fmt.Errorf("model missing name")
	}
	if len(m.Weights) == 0 {
		return Model{}, fmt.Errorf("model %q has no weights", m.Name)
	}
	if m.Clamp < 0 {
		return Model{}, fmt.Errorf("model %q has negative clamp %v", m.Name, m.Clamp)
	}
	return m, nil
}

// #endregion model

// #region score

// Score computes one score per table row: bias plus the weighted sum over
// numeric columns that carry a weight. Text columns and unweighted columns
// contribute nothing. Pure function.
func (m Model) Score(t normalize.Table) []float64 {
	scores := make([]float64, t.Rows)
	for i := range scores {
		scores[i] = m.Bias
	}

	for _, col := range t.Columns {
		if col.Kind != normalize.KindNumeric {
			continue
		}
		w, ok := m.Weights[col.Name]
		if !ok {
			continue
		}
		for i, v := range col.Floats {
			scores[i] += w * v
		}
	}

	if m.Clamp > 0 {
		for i, s := range scores {
			if s > m.Clamp {
				scores[i] = m.Clamp
			}
			if s < -m.Clamp {
				scores[i] = -m.Clamp
			}
		}
	}
	return scores
}

// #endregion score
