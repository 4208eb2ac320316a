package score

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"pahscreen/domain/core"
)

func evidence(status Status, log2fc float64) AxisEvidence {
	return AxisEvidence{Present: true, Log2FC: log2fc, QValue: 0.01, Status: status}
}

func TestComposite(t *testing.T) {
	w := DefaultWeights()

	t.Run("all axes satisfied with saturated vascular", func(t *testing.T) {
		c := Candidate{
			Pair:     DrugTargetPair{DrugName: "Imatinib", MoleculeChemblID: "CHEMBL941", TargetGene: "PDGFRB"},
			Lung:     evidence(StatusLungEnriched, 2.5),
			PAHLung:  evidence(StatusUpInPAH, 1.8),
			RV:       evidence(StatusDownInRV, -1.2),
			Vascular: evidence(StatusVascularEnriched, 1.0),
		}
		sc := Composite(c, w, 2.0)
		assert.Equal(t, 1.0, sc.LungEnriched)
		assert.Equal(t, 1.0, sc.PAHLungUp)
		assert.Equal(t, 1.0, sc.PAHRVDown)
		assert.Equal(t, 0.5, sc.VascularComponent)
		// 1*1 + 2*1 + 2*1 + 1*0.5
		assert.Equal(t, 5.5, sc.CompositeScore)
	})

	t.Run("all evidence missing scores zero", func(t *testing.T) {
		c := Candidate{
			Pair:     DrugTargetPair{DrugName: "Aspirin", TargetGene: "PTGS1"},
			Lung:     NoEvidence(),
			PAHLung:  NoEvidence(),
			RV:       NoEvidence(),
			Vascular: NoEvidence(),
		}
		sc := Composite(c, w, 2.0)
		assert.Equal(t, 0.0, sc.CompositeScore)
	})

	t.Run("wrong direction contributes nothing", func(t *testing.T) {
		c := Candidate{
			Lung:     evidence(StatusLungDepleted, -2.0),
			PAHLung:  evidence(StatusDownInPAH, -1.5),
			RV:       evidence(StatusUpInRV, 1.5),
			Vascular: NoEvidence(),
		}
		sc := Composite(c, w, 2.0)
		assert.Equal(t, 0.0, sc.CompositeScore)
	})

	t.Run("vascular term clamps to one above saturation", func(t *testing.T) {
		c := Candidate{Vascular: evidence(StatusVascularEnriched, 7.3)}
		sc := Composite(c, w, 2.0)
		assert.Equal(t, 1.0, sc.VascularComponent)
	})

	t.Run("negative vascular score clamps to zero", func(t *testing.T) {
		c := Candidate{Vascular: evidence(StatusVascularDepleted, -1.4)}
		sc := Composite(c, w, 2.0)
		assert.Equal(t, 0.0, sc.VascularComponent)
	})

	t.Run("deterministic for identical input", func(t *testing.T) {
		c := Candidate{
			Lung:     evidence(StatusLungEnriched, 2.0),
			Vascular: evidence(StatusVascularEnriched, 0.8),
		}
		a := Composite(c, w, 2.0)
		b := Composite(c, w, 2.0)
		assert.Equal(t, a.CompositeScore, b.CompositeScore)
	})
}

func TestRankCandidates(t *testing.T) {
	w := DefaultWeights()

	t.Run("descending by composite with lexical tie break", func(t *testing.T) {
		cands := []Candidate{
			{Pair: DrugTargetPair{DrugName: "B", MoleculeChemblID: "CHEMBL2", TargetGene: "ZZZ3"},
				PAHLung: evidence(StatusUpInPAH, 1.5)},
			{Pair: DrugTargetPair{DrugName: "A", MoleculeChemblID: "CHEMBL1", TargetGene: "ABCA1"},
				PAHLung: evidence(StatusUpInPAH, 2.0)},
			{Pair: DrugTargetPair{DrugName: "C", MoleculeChemblID: "CHEMBL3", TargetGene: "MMP9"},
				Lung: evidence(StatusLungEnriched, 2.0),
				RV:   evidence(StatusDownInRV, -1.1)},
		}
		ranked := RankCandidates(cands, w, 2.0)

		assert.Equal(t, 3.0, ranked[0].CompositeScore)
		assert.Equal(t, core.GeneSymbol("MMP9"), ranked[0].Pair.TargetGene)
		// the two PAH-lung-only candidates tie at 2.0; ABCA1 < ZZZ3
		assert.Equal(t, core.GeneSymbol("ABCA1"), ranked[1].Pair.TargetGene)
		assert.Equal(t, core.GeneSymbol("ZZZ3"), ranked[2].Pair.TargetGene)
		for i, sc := range ranked {
			assert.Equal(t, i+1, sc.Rank)
		}
	})

	t.Run("zero-score candidates stay in the table", func(t *testing.T) {
		cands := []Candidate{
			{Pair: DrugTargetPair{DrugName: "X", TargetGene: "GENE1"},
				Lung: NoEvidence(), PAHLung: NoEvidence(), RV: NoEvidence(), Vascular: NoEvidence()},
		}
		ranked := RankCandidates(cands, w, 2.0)
		assert.Len(t, ranked, 1)
		assert.Equal(t, 0.0, ranked[0].CompositeScore)
		assert.Equal(t, 1, ranked[0].Rank)
	})

	t.Run("same molecule tie breaks on molecule id last", func(t *testing.T) {
		cands := []Candidate{
			{Pair: DrugTargetPair{MoleculeChemblID: "CHEMBL9", TargetGene: "KDR"}},
			{Pair: DrugTargetPair{MoleculeChemblID: "CHEMBL2", TargetGene: "KDR"}},
		}
		ranked := RankCandidates(cands, w, 2.0)
		assert.Equal(t, core.DrugID("CHEMBL2"), ranked[0].Pair.MoleculeChemblID)
	})
}

func TestDedupePairs(t *testing.T) {
	pairs := []DrugTargetPair{
		{DrugName: "Sildenafil", MoleculeChemblID: "CHEMBL192", TargetGene: "PDE5A", PChembl: 7.2},
		{DrugName: "Sildenafil", MoleculeChemblID: "CHEMBL192", TargetGene: "PDE5A", PChembl: 8.9},
		{DrugName: "Sildenafil", MoleculeChemblID: "CHEMBL192", TargetGene: "PDE6A", PChembl: 6.0},
	}
	out := DedupePairs(pairs)
	assert.Len(t, out, 2)
	for _, p := range out {
		if p.TargetGene == "PDE5A" {
			assert.Equal(t, 8.9, p.PChembl)
		}
	}
}

func TestEvidenceFrom(t *testing.T) {
	t.Run("miss yields explicit no evidence", func(t *testing.T) {
		e := EvidenceFrom(GeneScore{}, false)
		assert.False(t, e.Present)
		assert.True(t, math.IsNaN(e.Log2FC))
	})

	t.Run("hit carries the axis verdict", func(t *testing.T) {
		g := GeneScore{Gene: "BMPR2", Log2FC: -1.3, QValue: 0.004, Status: StatusDownInPAH}
		e := EvidenceFrom(g, true)
		assert.True(t, e.Present)
		assert.Equal(t, StatusDownInPAH, e.Status)
		assert.Equal(t, -1.3, e.Log2FC)
	})
}
