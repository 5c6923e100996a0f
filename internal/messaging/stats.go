package messaging

import "math"

// #region summary

// Summary holds descriptive statistics for a score series.
type Summary struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Std  float64 `json:"std"`
}

// summarize computes the summary for a non-empty series.
func summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	lo, hi := values[0], values[0]
	var sum float64
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return Summary{
		Mean: mean,
		Min:  lo,
		Max:  hi,
		Std:  math.Sqrt(variance),
	}
}

// #endregion summary

// #region clamp

// clamp01 restricts v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion clamp
