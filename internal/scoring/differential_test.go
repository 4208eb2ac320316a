package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pahscreen/domain/core"
	"pahscreen/domain/expr"
	"pahscreen/domain/score"
	"pahscreen/internal/config"
)

func testThresholds() config.AxisThresholds {
	return config.AxisThresholds{
		Log2FCThreshold:   1.0,
		MeanExprThreshold: 5.0,
		QValueThreshold:   0.05,
		Pseudocount:       1.0,
	}
}

// buildMatrix creates a 4-vs-4 matrix with named groups
func buildMatrix(genes []core.GeneSymbol, values [][]float64, caseGroup, controlGroup string) *expr.Matrix {
	samples := make([]expr.Sample, 8)
	for i := range samples {
		group := caseGroup
		if i >= 4 {
			group = controlGroup
		}
		samples[i] = expr.Sample{Accession: "GSM" + string(rune('1'+i)), Group: group}
	}
	return &expr.Matrix{Source: "test", Genes: genes, Samples: samples, Values: values}
}

func TestDifferentialScorer(t *testing.T) {
	nan := math.NaN()
	genes := []core.GeneSymbol{"UP1", "FLAT1", "SPARSE1", "LOW1"}
	values := [][]float64{
		// strongly up in case, mean well above the floor
		{10, 10.5, 9.5, 10.2, 1, 1.2, 0.9, 1.1},
		// no separation
		{5, 5.1, 4.9, 5.0, 5.0, 5.05, 4.95, 5.1},
		// one usable control value, not testable
		{8, 8.2, 7.8, 8.1, 2.0, nan, nan, nan},
		// fold change clears the threshold but mean expression sits below the floor
		{3, 3.1, 2.9, 3.05, 0.5, 0.55, 0.45, 0.5},
	}
	m := buildMatrix(genes, values, "pah", "control")

	scorer := NewDifferentialScorer(score.AxisPAHLung, "pah", "control",
		score.StatusUpInPAH, score.StatusDownInPAH, testThresholds())
	scores, err := scorer.Score(m)
	require.NoError(t, err)
	require.Len(t, scores, 4)

	t.Run("strong upregulation is flagged", func(t *testing.T) {
		g := scores[0]
		assert.Equal(t, score.StatusUpInPAH, g.Status)
		assert.InDelta(t, 10.05, g.CaseMean, 1e-9)
		assert.InDelta(t, 1.05, g.ControlMean, 1e-9)
		assert.InDelta(t, math.Log2(11.05/2.05), g.Log2FC, 1e-9)
		assert.Less(t, g.QValue, 0.05)
	})

	t.Run("flat gene stays not significant", func(t *testing.T) {
		assert.Equal(t, score.StatusNotSignificant, scores[1].Status)
	})

	t.Run("sparse gene carries no fabricated significance", func(t *testing.T) {
		g := scores[2]
		assert.Equal(t, score.StatusInsufficientData, g.Status)
		assert.True(t, math.IsNaN(g.PValue))
		assert.True(t, math.IsNaN(g.QValue))
	})

	t.Run("expression floor suppresses noise-level fold changes", func(t *testing.T) {
		assert.Equal(t, score.StatusNotSignificant, scores[3].Status)
	})

	t.Run("output preserves matrix gene order", func(t *testing.T) {
		for i, g := range scores {
			assert.Equal(t, genes[i], g.Gene)
		}
	})

	t.Run("missing partition is a schema error", func(t *testing.T) {
		_, err := scorer.Score(buildMatrix(genes, values, "other", "control"))
		assert.Error(t, err)
	})
}

func TestDifferentialScorerDownregulation(t *testing.T) {
	genes := []core.GeneSymbol{"DOWN1"}
	values := [][]float64{
		{2, 2.2, 1.8, 2.1, 11, 11.5, 10.5, 11.2},
	}
	m := buildMatrix(genes, values, "pah_rv", "control")

	scorer := NewDifferentialScorer(score.AxisRV, "pah_rv", "control",
		score.StatusUpInRV, score.StatusDownInRV, testThresholds())
	scores, err := scorer.Score(m)
	require.NoError(t, err)
	assert.Equal(t, score.StatusDownInRV, scores[0].Status)
	assert.Less(t, scores[0].Log2FC, -1.0)
}

func TestSpecificityScorer(t *testing.T) {
	genes := []core.GeneSymbol{"SFTPC", "ACTB", "BORDER"}
	values := [][]float64{
		// lung marker, high in case compartment
		{10, 10.5, 9.5, 10.2, 1, 1.2, 0.9, 1.1},
		// housekeeping, identical everywhere
		{6, 6.1, 5.9, 6.0, 6.0, 6.05, 5.95, 6.1},
		// fold change sits exactly at the threshold, still counts
		{3, 3.05, 2.95, 3.02, 1.0, 1.02, 0.98, 1.01},
	}
	m := buildMatrix(genes, values, "lung", "control_tissue")

	th := testThresholds()
	scorer := NewSpecificityScorer(score.AxisLung, "lung", "control_tissue",
		score.StatusLungEnriched, score.StatusLungDepleted, th)
	scores, err := scorer.Score(m)
	require.NoError(t, err)

	t.Run("marker gene is enriched", func(t *testing.T) {
		assert.Equal(t, score.StatusLungEnriched, scores[0].Status)
	})

	t.Run("housekeeping gene is not", func(t *testing.T) {
		assert.Equal(t, score.StatusNotSignificant, scores[1].Status)
	})

	t.Run("no expression floor applies", func(t *testing.T) {
		// log2((2+1)/(1+1)) would fail a mean floor of 5 under the
		// differential policy; specificity keeps it eligible
		g := scores[2]
		assert.NotEqual(t, score.StatusInsufficientData, g.Status)
		assert.GreaterOrEqual(t, g.Log2FC, 0.9)
	})
}
