package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"pahscreen/adapters/tabular"
	"pahscreen/domain/core"
	"pahscreen/domain/score"
	"pahscreen/internal/errors"
)

// KnownPAHTargets are the gene targets of currently approved PAH drug
// classes (endothelin receptor antagonists, PDE5 inhibitors, prostacyclin
// pathway agents, sGC stimulators).
var KnownPAHTargets = []core.GeneSymbol{
	"EDNRA", "EDNRB", "PDE5A", "PTGIR", "PPARG", "GUCY1A2", "GUCY1B3",
}

// KnownPAHDrugs are drug names already approved for PAH
var KnownPAHDrugs = []string{
	"Bosentan", "Ambrisentan", "Macitentan",
	"Sildenafil", "Tadalafil",
	"Epoprostenol", "Treprostinil", "Selexipag",
	"Riociguat",
}

// ComparisonRow annotates one ranked candidate against the approved-therapy
// reference set.
type ComparisonRow struct {
	score.ScoredCandidate
	IsKnownPAHTarget     bool
	IsPAHDrug            bool
	RepurposingCandidate bool
	TherapeuticDirection string
}

// Comparator cross-references ranked candidates with the known PAH therapy
// landscape: recovery of approved targets validates the screen, and high
// scorers outside it are the repurposing output.
type Comparator struct {
	targets  map[core.GeneSymbol]struct{}
	drugs    map[string]struct{}
	minScore float64
}

// NewComparator builds a comparator over the given reference sets. Empty
// slices fall back to the built-in approved-therapy reference.
func NewComparator(targets []core.GeneSymbol, drugs []string, minScore float64) *Comparator {
	if len(targets) == 0 {
		targets = KnownPAHTargets
	}
	if len(drugs) == 0 {
		drugs = KnownPAHDrugs
	}
	c := &Comparator{
		targets:  make(map[core.GeneSymbol]struct{}, len(targets)),
		drugs:    make(map[string]struct{}, len(drugs)),
		minScore: minScore,
	}
	for _, t := range targets {
		c.targets[core.CanonicalGeneSymbol(string(t))] = struct{}{}
	}
	for _, d := range drugs {
		c.drugs[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return c
}

// Compare annotates every ranked candidate. Input order is preserved.
func (c *Comparator) Compare(ranked []score.ScoredCandidate) ([]ComparisonRow, error) {
	if len(ranked) == 0 {
		return nil, errors.JoinError("no ranked candidates to compare")
	}
	rows := make([]ComparisonRow, 0, len(ranked))
	for _, sc := range ranked {
		_, knownTarget := c.targets[sc.Pair.TargetGene]
		_, pahDrug := c.drugs[strings.ToLower(strings.TrimSpace(sc.Pair.DrugName))]
		rows = append(rows, ComparisonRow{
			ScoredCandidate:      sc,
			IsKnownPAHTarget:     knownTarget,
			IsPAHDrug:            pahDrug,
			RepurposingCandidate: !pahDrug && sc.CompositeScore >= c.minScore,
			TherapeuticDirection: therapeuticDirection(sc),
		})
	}
	return rows, nil
}

// therapeuticDirection is the coarse intervention hint derived from the
// disease-axis evidence.
func therapeuticDirection(sc score.ScoredCandidate) string {
	switch {
	case sc.PAHLungUp >= 1:
		return "Inhibit"
	case sc.PAHRVDown >= 1:
		return "Activate"
	default:
		return "Unclear"
	}
}

var comparisonColumns = []string{
	"rank", "drug_name", "molecule_chembl_id", "target_gene_symbol",
	"composite_score", "is_known_pah_target", "is_pah_drug",
	"repurposing_candidate", "therapeutic_direction",
}

// ComparisonToTable renders comparison rows for CSV export
func ComparisonToTable(rows []ComparisonRow) *tabular.Table {
	t := tabular.NewTable(comparisonColumns...)
	for _, r := range rows {
		t.Append(
			tabular.FormatInt(r.Rank),
			r.Pair.DrugName,
			string(r.Pair.MoleculeChemblID),
			r.Pair.TargetGene.String(),
			tabular.FormatFloat(r.CompositeScore),
			formatBool(r.IsKnownPAHTarget),
			formatBool(r.IsPAHDrug),
			formatBool(r.RepurposingCandidate),
			r.TherapeuticDirection,
		)
	}
	return t
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// RepurposingSummary renders the text report: the top repurposing candidates
// and the recovery check over the known-target reference set.
func (c *Comparator) RepurposingSummary(rows []ComparisonRow) string {
	var b strings.Builder
	b.WriteString("# Repurposing candidates vs approved PAH therapies\n\n")

	b.WriteString("## Top repurposing candidates\n\n")
	count := 0
	for _, r := range rows {
		if !r.RepurposingCandidate {
			continue
		}
		count++
		fmt.Fprintf(&b, "%d. %s -> %s (composite %s, %s)\n",
			count, r.Pair.DrugName, r.Pair.TargetGene,
			tabular.FormatFloat(r.CompositeScore), r.TherapeuticDirection)
		if count >= 20 {
			break
		}
	}
	if count == 0 {
		fmt.Fprintf(&b, "No candidates reached the minimum composite score of %s.\n",
			tabular.FormatFloat(c.minScore))
	}

	b.WriteString("\n## Known PAH target recovery\n\n")
	recovered := make(map[core.GeneSymbol]int)
	for _, r := range rows {
		if !r.IsKnownPAHTarget {
			continue
		}
		if _, seen := recovered[r.Pair.TargetGene]; !seen {
			recovered[r.Pair.TargetGene] = r.Rank
		}
	}
	targets := make([]string, 0, len(c.targets))
	for t := range c.targets {
		targets = append(targets, string(t))
	}
	sort.Strings(targets)
	for _, t := range targets {
		if rank, ok := recovered[core.GeneSymbol(t)]; ok {
			fmt.Fprintf(&b, "- %s: recovered at rank %d\n", t, rank)
		} else {
			fmt.Fprintf(&b, "- %s: not present in ranked candidates\n", t)
		}
	}
	fmt.Fprintf(&b, "\nRecovered %d of %d known targets.\n", len(recovered), len(c.targets))
	return b.String()
}
