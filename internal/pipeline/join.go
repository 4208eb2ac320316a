package pipeline

import (
	"pahscreen/adapters/tabular"
	"pahscreen/domain/core"
	"pahscreen/domain/score"
	"pahscreen/internal/config"
	"pahscreen/internal/errors"
	"pahscreen/internal/idmap"
)

// LoadDrugTargets reads the drug knowledge base, resolves target identifiers
// to canonical gene symbols through the mapper, and deduplicates the
// (drug, target) pairs. Aborts with a MappingError when resolution coverage
// falls below the configured fraction.
func LoadDrugTargets(cfg config.DrugTableConfig, mapper *idmap.Mapper, maxUnresolved float64) ([]score.DrugTargetPair, error) {
	t, err := tabular.ReadCSV(cfg.Path, tabular.Schema{
		Name:     "drug activity",
		Required: []string{cfg.DrugNameColumn, cfg.MoleculeColumn, cfg.TargetColumn},
	})
	if err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, errors.SchemaErrorf("drug activity table %s has no rows", cfg.Path)
	}

	targetIDs := make([]string, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		targetIDs = append(targetIDs, t.Value(i, cfg.TargetColumn))
	}
	if f := mapper.UnresolvedFraction(targetIDs); f > maxUnresolved {
		return nil, errors.MappingErrorf(
			"drug activity table %s: %.1f%% of target identifiers unresolved (limit %.1f%%)",
			cfg.Path, f*100, maxUnresolved*100)
	}

	pairs := make([]score.DrugTargetPair, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		gene, ok := mapper.Resolve(t.Value(i, cfg.TargetColumn))
		if !ok {
			continue
		}
		pairs = append(pairs, score.DrugTargetPair{
			DrugName:         t.Value(i, cfg.DrugNameColumn),
			MoleculeChemblID: core.DrugID(t.Value(i, cfg.MoleculeColumn)),
			TargetGene:       gene,
			PChembl:          tabular.ParseFloat(t.Value(i, cfg.ActivityColumn)),
		})
	}
	return score.DedupePairs(pairs), nil
}

// JoinCandidates left-joins the knowledge-base pairs against the four axis
// tables by gene symbol. The knowledge base anchors the join: a pair whose
// target has no evidence on an axis gets the explicit missing marker for
// that axis rather than being dropped. Fails with a JoinError only when the
// anchor itself is empty.
func JoinCandidates(pairs []score.DrugTargetPair, lung, pahLung, rv, vascular *score.AxisTable) ([]score.Candidate, error) {
	if len(pairs) == 0 {
		return nil, errors.JoinError("drug-target anchor table is empty")
	}

	cands := make([]score.Candidate, 0, len(pairs))
	for _, p := range pairs {
		c := score.Candidate{Pair: p}
		c.Lung = lookupEvidence(lung, p.TargetGene)
		c.PAHLung = lookupEvidence(pahLung, p.TargetGene)
		c.RV = lookupEvidence(rv, p.TargetGene)
		c.Vascular = lookupEvidence(vascular, p.TargetGene)
		cands = append(cands, c)
	}
	return cands, nil
}

func lookupEvidence(t *score.AxisTable, gene core.GeneSymbol) score.AxisEvidence {
	s, ok := t.Lookup(gene)
	return score.EvidenceFrom(s, ok)
}
