// Package pipeline wires the scoring stages into the sequential analysis run.
package pipeline

import (
	"strconv"

	"pahscreen/adapters/tabular"
	"pahscreen/domain/core"
	"pahscreen/domain/score"
	"pahscreen/internal/errors"
)

// Stable column orders for every stage output. Numeric cells render at the
// fixed precision with NA for missing values, so unchanged inputs reproduce
// byte-identical files.
var (
	axisColumns = []string{
		"gene_symbol", "case_mean", "control_mean", "log2fc", "p_value", "q_value", "status",
	}

	candidateColumns = []string{
		"drug_name", "molecule_chembl_id", "target_gene_symbol", "pchembl_value",
		"lung_log2fc", "lung_q_value", "lung_status",
		"pah_log2fc", "pah_q_value", "pah_status",
		"rv_log2fc", "rv_q_value", "rv_status",
		"vascular_score", "vascular_q_value", "vascular_status",
	}

	rankedColumns = []string{
		"rank", "drug_name", "molecule_chembl_id", "target_gene_symbol", "pchembl_value",
		"lung_enriched", "pah_lung_up", "pah_rv_down", "vascular_component", "composite_score",
	}
)

// AxisScoresToTable serializes one axis score table
func AxisScoresToTable(scores []score.GeneScore) *tabular.Table {
	t := tabular.NewTable(axisColumns...)
	for _, g := range scores {
		t.Append(
			g.Gene.String(),
			tabular.FormatFloat(g.CaseMean),
			tabular.FormatFloat(g.ControlMean),
			tabular.FormatFloat(g.Log2FC),
			tabular.FormatFloat(g.PValue),
			tabular.FormatFloat(g.QValue),
			string(g.Status),
		)
	}
	return t
}

// ParseAxisTable deserializes an axis score table written by a prior stage
func ParseAxisTable(t *tabular.Table, axis score.Axis) (*score.AxisTable, error) {
	for _, col := range axisColumns {
		if _, ok := t.Col(col); !ok {
			return nil, errors.SchemaErrorf("axis table for %s is missing column %q", axis, col)
		}
	}
	scores := make([]score.GeneScore, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		scores = append(scores, score.GeneScore{
			Gene:        core.CanonicalGeneSymbol(t.Value(i, "gene_symbol")),
			CaseMean:    tabular.ParseFloat(t.Value(i, "case_mean")),
			ControlMean: tabular.ParseFloat(t.Value(i, "control_mean")),
			Log2FC:      tabular.ParseFloat(t.Value(i, "log2fc")),
			PValue:      tabular.ParseFloat(t.Value(i, "p_value")),
			QValue:      tabular.ParseFloat(t.Value(i, "q_value")),
			Status:      score.Status(t.Value(i, "status")),
		})
	}
	return score.NewAxisTable(axis, scores), nil
}

// CandidatesToTable serializes the joined drug-target evidence table
func CandidatesToTable(cands []score.Candidate) *tabular.Table {
	t := tabular.NewTable(candidateColumns...)
	for _, c := range cands {
		t.Append(
			c.Pair.DrugName,
			string(c.Pair.MoleculeChemblID),
			c.Pair.TargetGene.String(),
			tabular.FormatFloat(c.Pair.PChembl),
			tabular.FormatFloat(c.Lung.Log2FC),
			tabular.FormatFloat(c.Lung.QValue),
			evidenceStatus(c.Lung),
			tabular.FormatFloat(c.PAHLung.Log2FC),
			tabular.FormatFloat(c.PAHLung.QValue),
			evidenceStatus(c.PAHLung),
			tabular.FormatFloat(c.RV.Log2FC),
			tabular.FormatFloat(c.RV.QValue),
			evidenceStatus(c.RV),
			tabular.FormatFloat(c.Vascular.Log2FC),
			tabular.FormatFloat(c.Vascular.QValue),
			evidenceStatus(c.Vascular),
		)
	}
	return t
}

// ParseCandidateTable deserializes the joined evidence table
func ParseCandidateTable(t *tabular.Table) ([]score.Candidate, error) {
	for _, col := range candidateColumns {
		if _, ok := t.Col(col); !ok {
			return nil, errors.SchemaErrorf("candidate table is missing column %q", col)
		}
	}
	cands := make([]score.Candidate, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		cands = append(cands, score.Candidate{
			Pair: score.DrugTargetPair{
				DrugName:         t.Value(i, "drug_name"),
				MoleculeChemblID: core.DrugID(t.Value(i, "molecule_chembl_id")),
				TargetGene:       core.CanonicalGeneSymbol(t.Value(i, "target_gene_symbol")),
				PChembl:          tabular.ParseFloat(t.Value(i, "pchembl_value")),
			},
			Lung:     parseEvidence(t, i, "lung_log2fc", "lung_q_value", "lung_status"),
			PAHLung:  parseEvidence(t, i, "pah_log2fc", "pah_q_value", "pah_status"),
			RV:       parseEvidence(t, i, "rv_log2fc", "rv_q_value", "rv_status"),
			Vascular: parseEvidence(t, i, "vascular_score", "vascular_q_value", "vascular_status"),
		})
	}
	return cands, nil
}

// RankedToTable serializes the ranked candidate table
func RankedToTable(ranked []score.ScoredCandidate) *tabular.Table {
	t := tabular.NewTable(rankedColumns...)
	for _, sc := range ranked {
		t.Append(
			tabular.FormatInt(sc.Rank),
			sc.Pair.DrugName,
			string(sc.Pair.MoleculeChemblID),
			sc.Pair.TargetGene.String(),
			tabular.FormatFloat(sc.Pair.PChembl),
			tabular.FormatFloat(sc.LungEnriched),
			tabular.FormatFloat(sc.PAHLungUp),
			tabular.FormatFloat(sc.PAHRVDown),
			tabular.FormatFloat(sc.VascularComponent),
			tabular.FormatFloat(sc.CompositeScore),
		)
	}
	return t
}

// ParseRankedTable deserializes a ranked table written by the ranking stage
func ParseRankedTable(t *tabular.Table) ([]score.ScoredCandidate, error) {
	for _, col := range rankedColumns {
		if _, ok := t.Col(col); !ok {
			return nil, errors.SchemaErrorf("ranked table is missing column %q", col)
		}
	}
	ranked := make([]score.ScoredCandidate, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		rank, err := strconv.Atoi(t.Value(i, "rank"))
		if err != nil {
			return nil, errors.SchemaErrorf("ranked table row %d has malformed rank %q", i+1, t.Value(i, "rank"))
		}
		sc := score.ScoredCandidate{
			Candidate: score.Candidate{
				Pair: score.DrugTargetPair{
					DrugName:         t.Value(i, "drug_name"),
					MoleculeChemblID: core.DrugID(t.Value(i, "molecule_chembl_id")),
					TargetGene:       core.CanonicalGeneSymbol(t.Value(i, "target_gene_symbol")),
					PChembl:          tabular.ParseFloat(t.Value(i, "pchembl_value")),
				},
			},
			LungEnriched:      tabular.ParseFloat(t.Value(i, "lung_enriched")),
			PAHLungUp:         tabular.ParseFloat(t.Value(i, "pah_lung_up")),
			PAHRVDown:         tabular.ParseFloat(t.Value(i, "pah_rv_down")),
			VascularComponent: tabular.ParseFloat(t.Value(i, "vascular_component")),
			CompositeScore:    tabular.ParseFloat(t.Value(i, "composite_score")),
			Rank:              rank,
		}
		ranked = append(ranked, sc)
	}
	return ranked, nil
}

func evidenceStatus(e score.AxisEvidence) string {
	if !e.Present {
		return tabular.NAMarker
	}
	return string(e.Status)
}

func parseEvidence(t *tabular.Table, row int, fcCol, qCol, statusCol string) score.AxisEvidence {
	status := t.Value(row, statusCol)
	if status == tabular.NAMarker || status == "" {
		return score.NoEvidence()
	}
	fc := tabular.ParseFloat(t.Value(row, fcCol))
	q := tabular.ParseFloat(t.Value(row, qCol))
	return score.AxisEvidence{Present: true, Log2FC: fc, QValue: q, Status: score.Status(status)}
}
