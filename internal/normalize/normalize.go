package normalize

import (
	"fmt"
	"log"
	"math"

	"github.com/kibbyd/integration-layer/go-coordinator/internal/config"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/fault"
)

// #region normalizer

// Normalizer turns raw columnar data into a Table, conditionally rescaling
// each numeric column.
type Normalizer struct {
	cfg config.DataConfig

	failures   int
	recoveries int
	lastErr    error
}

// New creates a Normalizer from the data config section.
func New(cfg config.DataConfig) *Normalizer {
	if cfg.Method == "" {
		cfg.Method = "minmax"
	}
	return &Normalizer{cfg: cfg}
}

// #endregion normalizer

// #region normalize

// Normalize builds a table from the record, preserving field order, and
// rescales numeric columns when the normalize flag is set. Any failure is
// logged once here and returned as a normalization-kind error with the
// cause chained.
func (n *Normalizer) Normalize(rec RawRecord) (Table, error) {
	table, err := buildTable(rec)
	if err != nil {
		return Table{}, n.fail(err)
	}

	if n.cfg.Normalize {
		if err := rescaleTable(&table, n.cfg.Method); err != nil {
			return Table{}, n.fail(err)
		}
	}

	return table, nil
}

func (n *Normalizer) fail(err error) error {
	n.failures++
	n.lastErr = err
	log.Printf("[NORM] normalization failed: %v", err)
	return fault.Wrap(fault.KindNormalization, err, "normalization failed")
}

// #endregion normalize

// #region recover

// Recover is the best-effort recovery hook invoked by centralized error
// handling. It clears the sticky failure state; there is no last request
// to retry because the normalizer holds no request data.
func (n *Normalizer) Recover() error {
	cleared := n.failures
	n.failures = 0
	n.lastErr = nil
	n.recoveries++
	log.Printf("[NORM] recover: cleared failure state (%d failures)", cleared)
	return nil
}

// Failures returns the count of failed Normalize calls since the last recovery.
func (n *Normalizer) Failures() int { return n.failures }

// Recoveries returns how many times Recover has run.
func (n *Normalizer) Recoveries() int { return n.recoveries }

// #endregion recover

// #region build-table

// buildTable converts a record into typed columns. All series must share one
// row count; a column is numeric only when every value converts to float64,
// otherwise its values are kept as text.
func buildTable(rec RawRecord) (Table, error) {
	if len(rec) == 0 {
		return Table{}, nil
	}

	rows := len(rec[0].Values)
	columns := make([]Column, 0, len(rec))

	for _, s := range rec {
		if len(s.Values) != rows {
			return Table{}, fmt.Errorf("ragged input: field %q has %d values, expected %d", s.Name, len(s.Values), rows)
		}
		col, err := buildColumn(s)
		if err != nil {
			return Table{}, err
		}
		columns = append(columns, col)
	}

	return Table{Columns: columns, Rows: rows}, nil
}

func buildColumn(s Series) (Column, error) {
	floats := make([]float64, len(s.Values))
	numeric := true

	for i, v := range s.Values {
		f, ok, err := toFloat(v)
		if err != nil {
			return Column{}, fmt.Errorf("field %q row %d: %w", s.Name, i, err)
		}
		if !ok {
			numeric = false
			break
		}
		floats[i] = f
	}

	if numeric {
		return Column{Name: s.Name, Kind: KindNumeric, Floats: floats}, nil
	}

	texts := make([]string, len(s.Values))
	for i, v := range s.Values {
		t, err := toText(v)
		if err != nil {
			return Column{}, fmt.Errorf("field %q row %d: %w", s.Name, i, err)
		}
		texts[i] = t
	}
	return Column{Name: s.Name, Kind: KindText, Texts: texts}, nil
}

// toFloat converts scalar numerics. Non-numeric scalars report ok=false;
// composite values are un-convertible and error out.
func toFloat(v interface{}) (float64, bool, error) {
	switch x := v.(type) {
	case float64:
		return x, true, nil
	case float32:
		return float64(x), true, nil
	case int:
		return float64(x), true, nil
	case int32:
		return float64(x), true, nil
	case int64:
		return float64(x), true, nil
	case uint:
		return float64(x), true, nil
	case string, bool:
		return 0, false, nil
	case nil:
		return 0, false, fmt.Errorf("un-convertible value <nil>")
	default:
		return 0, false, fmt.Errorf("un-convertible value of type %T", v)
	}
}

func toText(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return fmt.Sprintf("%t", x), nil
	case nil:
		return "", fmt.Errorf("un-convertible value <nil>")
	default:
		f, ok, err := toFloat(v)
		if err != nil {
			return "", err
		}
		if ok {
			return fmt.Sprintf("%v", f), nil
		}
		return "", fmt.Errorf("un-convertible value of type %T", v)
	}
}

// #endregion build-table

// #region rescale

// rescaleTable rewrites each numeric column in place. Text columns pass
// through unchanged: rescaling text would silently corrupt data, and the
// messaging step receives the raw input anyway. Min-max is idempotent on
// already-scaled columns; z-score is not, but both are deterministic for a
// given input column.
func rescaleTable(t *Table, method string) error {
	for i := range t.Columns {
		if t.Columns[i].Kind != KindNumeric {
			continue
		}
		switch method {
		case "minmax":
			t.Columns[i].Floats = minMax(t.Columns[i].Floats)
		case "zscore":
			t.Columns[i].Floats = zScore(t.Columns[i].Floats)
		default:
			return fmt.Errorf("unknown normalization method %q", method)
		}
	}
	return nil
}

// minMax maps values onto [0, 1]. A constant column maps to all zeros.
func minMax(values []float64) []float64 {
	if len(values) == 0 {
		return values
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	out := make([]float64, len(values))
	if hi == lo {
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

// zScore centers values on the mean in standard-deviation units. A column
// with zero spread maps to all zeros.
func zScore(values []float64) []float64 {
	if len(values) == 0 {
		return values
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	std := math.Sqrt(variance)

	out := make([]float64, len(values))
	if std == 0 {
		return out
	}
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out
}

// #endregion rescale
