package score

import (
	"math"
	"sort"

	"pahscreen/domain/core"
)

// Axis identifies one of the four independent biological comparisons
// contributing to the composite score.
type Axis string

const (
	AxisLung     Axis = "lung"     // lung vs control tissue enrichment
	AxisPAHLung  Axis = "pah_lung" // PAH lung vs control DEG
	AxisRV       Axis = "rv"       // PAH right ventricle protective-context DEG
	AxisVascular Axis = "vascular" // lung vascular vs whole lung specificity
)

// Status is the categorical flag an axis scorer derives by thresholding
// both the effect and the corrected significance measure.
type Status string

const (
	StatusNotSignificant   Status = "not_significant"
	StatusInsufficientData Status = "insufficient_data"

	StatusLungEnriched Status = "lung_enriched"
	StatusLungDepleted Status = "lung_depleted"

	StatusUpInPAH   Status = "up_in_pah"
	StatusDownInPAH Status = "down_in_pah"

	StatusUpInRV   Status = "up_in_rv"
	StatusDownInRV Status = "down_in_rv"

	StatusVascularEnriched Status = "vascular_enriched"
	StatusVascularDepleted Status = "vascular_depleted"
)

// GeneScore is one axis scorer's verdict on one gene.
// Immutable once written to an intermediate table.
// INVARIANTS:
// - PValue and QValue are in [0,1] when the gene was tested
// - both are NaN when Status is insufficient_data; a skipped test never
//   carries a fabricated significance value
// - Log2FC is finite whenever the gene was tested
type GeneScore struct {
	Gene        core.GeneSymbol
	CaseMean    float64
	ControlMean float64
	Log2FC      float64
	PValue      float64
	QValue      float64
	Status      Status
}

// Tested reports whether the gene carried enough data for the significance test
func (g GeneScore) Tested() bool {
	return g.Status != StatusInsufficientData
}

// AxisTable is the immutable per-axis output keyed by gene symbol
type AxisTable struct {
	Axis   Axis
	Scores []GeneScore

	index map[core.GeneSymbol]int
}

// NewAxisTable builds a table with a gene lookup index
func NewAxisTable(axis Axis, scores []GeneScore) *AxisTable {
	t := &AxisTable{Axis: axis, Scores: scores, index: make(map[core.GeneSymbol]int, len(scores))}
	for i, s := range scores {
		t.index[s.Gene] = i
	}
	return t
}

// Lookup returns the score for a gene if the axis has evidence for it
func (t *AxisTable) Lookup(gene core.GeneSymbol) (GeneScore, bool) {
	if t == nil {
		return GeneScore{}, false
	}
	i, ok := t.index[gene]
	if !ok {
		return GeneScore{}, false
	}
	return t.Scores[i], true
}

// Len returns the number of scored genes
func (t *AxisTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Scores)
}

// DrugTargetPair is one deduplicated row of the drug knowledge base
type DrugTargetPair struct {
	DrugName         string
	MoleculeChemblID core.DrugID
	TargetGene       core.GeneSymbol
	PChembl          float64 // activity evidence; NaN when absent
}

// DedupePairs collapses duplicate (drug, target) rows, keeping the highest
// activity value seen for the pair. Output order is deterministic.
func DedupePairs(pairs []DrugTargetPair) []DrugTargetPair {
	type key struct {
		drug   core.DrugID
		target core.GeneSymbol
	}
	best := make(map[key]DrugTargetPair, len(pairs))
	for _, p := range pairs {
		k := key{p.MoleculeChemblID, p.TargetGene}
		prev, seen := best[k]
		if !seen {
			best[k] = p
			continue
		}
		if math.IsNaN(prev.PChembl) || (!math.IsNaN(p.PChembl) && p.PChembl > prev.PChembl) {
			best[k] = p
		}
	}
	out := make([]DrugTargetPair, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TargetGene != out[j].TargetGene {
			return out[i].TargetGene < out[j].TargetGene
		}
		return out[i].MoleculeChemblID < out[j].MoleculeChemblID
	})
	return out
}

// AxisEvidence is one axis's contribution to a joined candidate row.
// Present is false when the target gene is absent from that axis table;
// the numeric fields are then NaN and render as the NA marker.
type AxisEvidence struct {
	Present bool
	Log2FC  float64
	QValue  float64
	Status  Status
}

// NoEvidence is the explicit missing-value marker for an axis
func NoEvidence() AxisEvidence {
	return AxisEvidence{Present: false, Log2FC: math.NaN(), QValue: math.NaN()}
}

// EvidenceFrom converts an axis lookup result into candidate evidence
func EvidenceFrom(s GeneScore, ok bool) AxisEvidence {
	if !ok {
		return NoEvidence()
	}
	return AxisEvidence{Present: true, Log2FC: s.Log2FC, QValue: s.QValue, Status: s.Status}
}

// Candidate is a drug-target pair joined against all four axis tables
type Candidate struct {
	Pair     DrugTargetPair
	Lung     AxisEvidence
	PAHLung  AxisEvidence
	RV       AxisEvidence
	Vascular AxisEvidence
}

// Weights holds the composite score weight configuration
type Weights struct {
	LungEnriched float64 `json:"lung_enriched"`
	PAHLungUp    float64 `json:"pah_lung_up"`
	PAHRVDown    float64 `json:"pah_rv_down"`
	Vascular     float64 `json:"vascular"`
}

// DefaultWeights returns the documented default weight configuration (1, 2, 2, 1)
func DefaultWeights() Weights {
	return Weights{LungEnriched: 1, PAHLungUp: 2, PAHRVDown: 2, Vascular: 1}
}

// ScoredCandidate carries the four normalized axis terms and the composite.
// Rank is 1-based and assigned only by RankCandidates.
type ScoredCandidate struct {
	Candidate
	LungEnriched      float64
	PAHLungUp         float64
	PAHRVDown         float64
	VascularComponent float64
	CompositeScore    float64
	Rank              int
}

// Composite computes the weighted candidate score. Pure and deterministic:
// the same candidate, weights, and saturation always yield the same score.
// Missing evidence on an axis contributes exactly zero for that term.
func Composite(c Candidate, w Weights, vascularSaturation float64) ScoredCandidate {
	sc := ScoredCandidate{Candidate: c}
	sc.LungEnriched = indicator(c.Lung, StatusLungEnriched)
	sc.PAHLungUp = indicator(c.PAHLung, StatusUpInPAH)
	sc.PAHRVDown = indicator(c.RV, StatusDownInRV)
	sc.VascularComponent = vascularTerm(c.Vascular, vascularSaturation)
	sc.CompositeScore = w.LungEnriched*sc.LungEnriched +
		w.PAHLungUp*sc.PAHLungUp +
		w.PAHRVDown*sc.PAHRVDown +
		w.Vascular*sc.VascularComponent
	return sc
}

// indicator maps a categorical axis flag onto {0, 1}
func indicator(e AxisEvidence, want Status) float64 {
	if e.Present && e.Status == want {
		return 1
	}
	return 0
}

// vascularTerm maps the continuous specificity score onto [0, 1] by a
// clamped linear ramp: scores at or above the saturation point count as
// full evidence, negative scores as none. Monotonic, so relative ranking
// matches the raw specificity ordering.
func vascularTerm(e AxisEvidence, saturation float64) float64 {
	if !e.Present || math.IsNaN(e.Log2FC) || saturation <= 0 {
		return 0
	}
	v := e.Log2FC / saturation
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RankCandidates scores every candidate and produces the ranked table:
// strictly descending by composite score, ties broken by target gene
// symbol then ChEMBL drug id for reproducibility.
func RankCandidates(cands []Candidate, w Weights, vascularSaturation float64) []ScoredCandidate {
	ranked := make([]ScoredCandidate, len(cands))
	for i, c := range cands {
		ranked[i] = Composite(c, w, vascularSaturation)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].CompositeScore != ranked[j].CompositeScore {
			return ranked[i].CompositeScore > ranked[j].CompositeScore
		}
		if ranked[i].Pair.TargetGene != ranked[j].Pair.TargetGene {
			return ranked[i].Pair.TargetGene < ranked[j].Pair.TargetGene
		}
		return ranked[i].Pair.MoleculeChemblID < ranked[j].Pair.MoleculeChemblID
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
