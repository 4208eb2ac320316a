package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pahscreen/adapters/tabular"
	"pahscreen/domain/score"
)

func TestAxisTableRoundTrip(t *testing.T) {
	scores := []score.GeneScore{
		{Gene: "EDN1", CaseMean: 9.2, ControlMean: 4.3, Log2FC: 1.04, PValue: 0.001, QValue: 0.004, Status: score.StatusUpInPAH},
		{Gene: "SPARSE", CaseMean: 3.3, ControlMean: math.NaN(), Log2FC: math.NaN(),
			PValue: math.NaN(), QValue: math.NaN(), Status: score.StatusInsufficientData},
	}
	table := AxisScoresToTable(scores)

	parsed, err := ParseAxisTable(table, score.AxisPAHLung)
	require.NoError(t, err)
	require.Equal(t, 2, parsed.Len())

	g, ok := parsed.Lookup("EDN1")
	require.True(t, ok)
	assert.Equal(t, score.StatusUpInPAH, g.Status)
	assert.InDelta(t, 1.04, g.Log2FC, 1e-6)

	sparse, ok := parsed.Lookup("SPARSE")
	require.True(t, ok)
	assert.True(t, math.IsNaN(sparse.PValue))
	assert.True(t, math.IsNaN(sparse.QValue))
	assert.Equal(t, score.StatusInsufficientData, sparse.Status)
}

func TestParseAxisTableMissingColumn(t *testing.T) {
	table := tabular.NewTable("gene_symbol", "log2fc")
	_, err := ParseAxisTable(table, score.AxisLung)
	assert.Error(t, err)
}

func TestCandidateTableRoundTrip(t *testing.T) {
	cands := []score.Candidate{
		{
			Pair: score.DrugTargetPair{DrugName: "Imatinib", MoleculeChemblID: "CHEMBL941", TargetGene: "PDGFRB", PChembl: 8.2},
			Lung: score.AxisEvidence{Present: true, Log2FC: 2.1, QValue: 0.003, Status: score.StatusLungEnriched},
			PAHLung: score.AxisEvidence{Present: true, Log2FC: 1.6, QValue: 0.01, Status: score.StatusUpInPAH},
			RV:      score.NoEvidence(),
			Vascular: score.AxisEvidence{Present: true, Log2FC: 0.9, QValue: 0.04, Status: score.StatusVascularEnriched},
		},
	}
	table := CandidatesToTable(cands)

	t.Run("missing evidence renders NA", func(t *testing.T) {
		assert.Equal(t, "NA", table.Value(0, "rv_status"))
		assert.Equal(t, "NA", table.Value(0, "rv_log2fc"))
	})

	parsed, err := ParseCandidateTable(table)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	c := parsed[0]

	assert.Equal(t, cands[0].Pair.DrugName, c.Pair.DrugName)
	assert.InDelta(t, 8.2, c.Pair.PChembl, 1e-6)
	assert.True(t, c.Lung.Present)
	assert.Equal(t, score.StatusLungEnriched, c.Lung.Status)
	assert.False(t, c.RV.Present)
	assert.True(t, math.IsNaN(c.RV.Log2FC))
}

func TestRankedTableRoundTrip(t *testing.T) {
	cands := []score.Candidate{
		{
			Pair:    score.DrugTargetPair{DrugName: "Imatinib", MoleculeChemblID: "CHEMBL941", TargetGene: "PDGFRB", PChembl: 8.2},
			Lung:    score.AxisEvidence{Present: true, Log2FC: 2.1, QValue: 0.003, Status: score.StatusLungEnriched},
			PAHLung: score.AxisEvidence{Present: true, Log2FC: 1.6, QValue: 0.01, Status: score.StatusUpInPAH},
			RV:      score.NoEvidence(),
			Vascular: score.AxisEvidence{Present: true, Log2FC: 1.0, QValue: 0.04, Status: score.StatusVascularEnriched},
		},
		{
			Pair: score.DrugTargetPair{DrugName: "Aspirin", MoleculeChemblID: "CHEMBL25", TargetGene: "PTGS1", PChembl: math.NaN()},
			Lung: score.NoEvidence(), PAHLung: score.NoEvidence(), RV: score.NoEvidence(), Vascular: score.NoEvidence(),
		},
	}
	ranked := score.RankCandidates(cands, score.DefaultWeights(), 2.0)
	table := RankedToTable(ranked)

	parsed, err := ParseRankedTable(table)
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	assert.Equal(t, 1, parsed[0].Rank)
	assert.Equal(t, "Imatinib", parsed[0].Pair.DrugName)
	// 1*1 + 2*1 + 2*0 + 1*0.5
	assert.InDelta(t, 3.5, parsed[0].CompositeScore, 1e-6)
	assert.Equal(t, 2, parsed[1].Rank)
	assert.InDelta(t, 0.0, parsed[1].CompositeScore, 1e-6)
	assert.True(t, math.IsNaN(parsed[1].Pair.PChembl))
}

func TestRoundTripDeterminism(t *testing.T) {
	cands := []score.Candidate{
		{Pair: score.DrugTargetPair{DrugName: "A", MoleculeChemblID: "CHEMBL1", TargetGene: "G1"},
			PAHLung: score.AxisEvidence{Present: true, Log2FC: 1.5, QValue: 0.01, Status: score.StatusUpInPAH}},
		{Pair: score.DrugTargetPair{DrugName: "B", MoleculeChemblID: "CHEMBL2", TargetGene: "G2"},
			RV: score.AxisEvidence{Present: true, Log2FC: -1.5, QValue: 0.01, Status: score.StatusDownInRV}},
	}
	w := score.DefaultWeights()

	first := RankedToTable(score.RankCandidates(cands, w, 2.0))
	second := RankedToTable(score.RankCandidates(cands, w, 2.0))
	assert.Equal(t, first.Rows, second.Rows)
}
