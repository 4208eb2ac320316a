// Package scoring implements the four axis scorers over expression matrices.
package scoring

import (
	"math"

	"github.com/montanaflynn/stats"

	"pahscreen/domain/expr"
	"pahscreen/domain/score"
)

// AxisScorer is the shared contract for all four axis scorers: one
// normalized expression matrix with a two-group sample partition in, one
// per-gene effect/significance/flag table out. Output preserves the input
// matrix's gene order.
type AxisScorer interface {
	Axis() score.Axis
	Description() string
	Score(m *expr.Matrix) ([]score.GeneScore, error)
}

// validValues drops missing cells from a group's values
func validValues(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// groupMean returns the mean of the non-missing values, NaN when none remain
func groupMean(vals []float64) float64 {
	vals = validValues(vals)
	if len(vals) == 0 {
		return math.NaN()
	}
	m, err := stats.Mean(vals)
	if err != nil {
		return math.NaN()
	}
	return m
}

// logRatio computes the pseudocount-stabilized log2 fold-change between two
// group means. NaN when either side is missing or non-positive after the
// pseudocount shift.
func logRatio(caseMean, controlMean, pseudocount float64) float64 {
	if math.IsNaN(caseMean) || math.IsNaN(controlMean) {
		return math.NaN()
	}
	num := caseMean + pseudocount
	den := controlMean + pseudocount
	if num <= 0 || den <= 0 {
		return math.NaN()
	}
	return math.Log2(num / den)
}
