package scoring

import (
	"fmt"
	"math"

	"pahscreen/domain/expr"
	"pahscreen/domain/score"
	"pahscreen/internal/config"
	"pahscreen/internal/errors"
)

// DifferentialScorer computes per-gene differential expression between a
// case and a control sample group: group means, a pseudocount-stabilized
// log2 fold-change, a Welch significance test, and BH correction across all
// genes before thresholding. Used for the lung-enrichment, PAH-lung DEG,
// and right-ventricle cardioprotection axes with axis-specific thresholds
// and flag labels.
type DifferentialScorer struct {
	axis         score.Axis
	caseGroup    string
	controlGroup string
	positive     score.Status
	negative     score.Status
	th           config.AxisThresholds
}

// NewDifferentialScorer creates a differential-expression axis scorer
func NewDifferentialScorer(axis score.Axis, caseGroup, controlGroup string,
	positive, negative score.Status, th config.AxisThresholds) *DifferentialScorer {
	return &DifferentialScorer{
		axis:         axis,
		caseGroup:    caseGroup,
		controlGroup: controlGroup,
		positive:     positive,
		negative:     negative,
		th:           th,
	}
}

// Axis returns the axis this scorer contributes to
func (s *DifferentialScorer) Axis() score.Axis {
	return s.axis
}

// Description returns a human-readable description
func (s *DifferentialScorer) Description() string {
	return fmt.Sprintf("differential expression, %s vs %s", s.caseGroup, s.controlGroup)
}

// Score computes the per-gene score table for the axis
func (s *DifferentialScorer) Score(m *expr.Matrix) ([]score.GeneScore, error) {
	caseCols := m.GroupColumns(s.caseGroup)
	controlCols := m.GroupColumns(s.controlGroup)
	if len(caseCols) == 0 || len(controlCols) == 0 {
		return nil, errors.SchemaErrorf("matrix %s has no %q/%q sample partition for axis %s",
			m.Source, s.caseGroup, s.controlGroup, s.axis)
	}

	scores := make([]score.GeneScore, len(m.Genes))
	for i, gene := range m.Genes {
		caseVals := m.RowValues(i, caseCols)
		controlVals := m.RowValues(i, controlCols)

		g := score.GeneScore{
			Gene:        gene,
			CaseMean:    groupMean(caseVals),
			ControlMean: groupMean(controlVals),
			PValue:      math.NaN(),
			QValue:      math.NaN(),
			Status:      score.StatusInsufficientData,
		}
		g.Log2FC = logRatio(g.CaseMean, g.ControlMean, s.th.Pseudocount)

		test := WelchTTest(caseVals, controlVals)
		if test.OK && !math.IsNaN(g.Log2FC) {
			g.PValue = test.PValue
			g.Status = score.StatusNotSignificant
		}
		scores[i] = g
	}

	AdjustQValues(scores)

	for i := range scores {
		scores[i].Status = s.classify(scores[i])
	}
	return scores, nil
}

// classify applies the fixed threshold policy after FDR correction
func (s *DifferentialScorer) classify(g score.GeneScore) score.Status {
	if !g.Tested() || math.IsNaN(g.QValue) {
		if g.Status == score.StatusInsufficientData {
			return score.StatusInsufficientData
		}
		return score.StatusNotSignificant
	}
	meanExpr := (g.CaseMean + g.ControlMean) / 2
	if g.QValue > s.th.QValueThreshold || meanExpr <= s.th.MeanExprThreshold {
		return score.StatusNotSignificant
	}
	switch {
	case g.Log2FC > s.th.Log2FCThreshold:
		return s.positive
	case g.Log2FC < -s.th.Log2FCThreshold:
		return s.negative
	default:
		return score.StatusNotSignificant
	}
}
