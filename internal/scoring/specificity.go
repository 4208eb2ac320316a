package scoring

import (
	"fmt"
	"math"

	"pahscreen/domain/expr"
	"pahscreen/domain/score"
	"pahscreen/internal/config"
	"pahscreen/internal/errors"
)

// SpecificityScorer computes a per-gene compartment-specificity score: the
// log2 ratio of mean expression in a cell compartment versus its parent
// tissue. The ratio itself is the effect measure and feeds the composite
// score as a continuous term; the Welch test and BH correction back the
// categorical enriched/depleted flag. Unlike the differential scorer there
// is no mean-expression floor: low-abundance compartment markers are
// exactly what this axis is after.
type SpecificityScorer struct {
	axis         score.Axis
	caseGroup    string
	controlGroup string
	positive     score.Status
	negative     score.Status
	th           config.AxisThresholds
}

// NewSpecificityScorer creates a compartment-specificity axis scorer
func NewSpecificityScorer(axis score.Axis, caseGroup, controlGroup string,
	positive, negative score.Status, th config.AxisThresholds) *SpecificityScorer {
	return &SpecificityScorer{
		axis:         axis,
		caseGroup:    caseGroup,
		controlGroup: controlGroup,
		positive:     positive,
		negative:     negative,
		th:           th,
	}
}

// Axis returns the axis this scorer contributes to
func (s *SpecificityScorer) Axis() score.Axis {
	return s.axis
}

// Description returns a human-readable description
func (s *SpecificityScorer) Description() string {
	return fmt.Sprintf("compartment specificity, %s vs %s", s.caseGroup, s.controlGroup)
}

// Score computes the per-gene specificity table for the axis
func (s *SpecificityScorer) Score(m *expr.Matrix) ([]score.GeneScore, error) {
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
		g := &scores[i]
		if g.Status == score.StatusInsufficientData || math.IsNaN(g.QValue) {
			continue
		}
		if g.QValue > s.th.QValueThreshold {
			g.Status = score.StatusNotSignificant
			continue
		}
		switch {
		case g.Log2FC >= s.th.Log2FCThreshold:
			g.Status = s.positive
		case g.Log2FC <= -s.th.Log2FCThreshold:
			g.Status = s.negative
		default:
			g.Status = score.StatusNotSignificant
		}
	}
	return scores, nil
}
