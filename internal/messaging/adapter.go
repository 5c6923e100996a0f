package messaging

import (
	"fmt"

	"github.com/kibbyd/integration-layer/go-coordinator/internal/config"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/model"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/monitor"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/normalize"
)

// #region output

// Modes for the adapted configuration.
const (
	ModeNormal   = "normal"
	ModeDegraded = "degraded"
)

// AdaptedOutput is the final adapted configuration returned to the caller.
type AdaptedOutput struct {
	Mode         string   `json:"mode"`
	BatchSize    int      `json:"batch_size"`
	AdaptScore   float64  `json:"adapt_score"`
	Vetoes       []string `json:"vetoes,omitempty"`
	ScoreSummary Summary  `json:"score_summary"`
	ModelName    string   `json:"model_name"`
	ModelVersion string   `json:"model_version,omitempty"`
	Fields       []string `json:"fields"`
	Rows         int      `json:"rows"`
}

// #endregion output

// #region adapter

// Adapter turns predictions and current health into an adapted output.
type Adapter struct {
	cfg config.MessagingConfig
}

// NewAdapter creates an Adapter from the messaging config section.
func NewAdapter(cfg config.MessagingConfig) *Adapter {
	if cfg.BaseBatchSize <= 0 {
		cfg.BaseBatchSize = 32
	}
	return &Adapter{cfg: cfg}
}

// #endregion adapter

// #region adapt

// Adapt evaluates hard vetoes first, then scores soft signals into the
// output parameters. A veto degrades the output; it is never an error.
// Deterministic for a given set of inputs.
func (a *Adapter) Adapt(preds model.Predictions, health monitor.Snapshot, input normalize.RawRecord) (AdaptedOutput, error) {
	scores, ok := preds.Series["score"]
	if !ok || len(scores) == 0 {
		return AdaptedOutput{}, fmt.Errorf("predictions missing score series")
	}

	summary := summarize(scores)
	risk := clamp01(summary.Max)

	// --- Hard veto pass ---
	var vetoes []string
	if risk > a.cfg.MaxRiskScore {
		vetoes = append(vetoes, fmt.Sprintf("risk %.4f exceeds cap %.4f", risk, a.cfg.MaxRiskScore))
	}
	if health.Score < a.cfg.MinHealthScore {
		vetoes = append(vetoes, fmt.Sprintf("health %.4f below floor %.4f", health.Score, a.cfg.MinHealthScore))
	}

	out := AdaptedOutput{
		ScoreSummary: summary,
		ModelName:    preds.ModelName,
		ModelVersion: preds.ModelVersion,
		Fields:       input.FieldNames(),
		Rows:         input.RowCount(),
	}

	if len(vetoes) > 0 {
		out.Mode = ModeDegraded
		out.Vetoes = vetoes
		out.BatchSize = a.cfg.BaseBatchSize / 2
		if out.BatchSize < 1 {
			out.BatchSize = 1
		}
		return out, nil
	}

	// --- Soft scoring ---
	// Health dominates; low risk and low spread sharpen the score.
	adaptScore := 0.5*health.Score + 0.3*(1-risk) + 0.2*(1-clamp01(summary.Std))

	out.Mode = ModeNormal
	out.AdaptScore = adaptScore
	out.BatchSize = scaleBatch(a.cfg.BaseBatchSize, adaptScore)
	return out, nil
}

// scaleBatch maps a [0,1] score onto [base/2, base].
func scaleBatch(base int, score float64) int {
	n := int(float64(base) * (0.5 + 0.5*clamp01(score)))
	if n < 1 {
		return 1
	}
	return n
}

// #endregion adapt
