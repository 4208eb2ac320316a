package pipeline

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"

	"pahscreen/adapters/tabular"
	"pahscreen/domain/score"
	"pahscreen/internal/config"
)

// Rationale sentences, selected by which axes a candidate satisfies.
// A fixed rule lookup: no numeric computation and no free text generation
// happens at report time.
const (
	rationaleInhibit      = "Target is upregulated in PAH lung; inhibition may counteract disease signaling."
	rationaleActivate     = "Target is suppressed in the PAH right ventricle; activation may restore protective signaling."
	rationaleLungSelect   = "Expression is lung-enriched, favoring tissue-selective exposure."
	rationaleVascular     = "Target shows pulmonary vascular specificity."
	rationaleContextClear = "Context unclear."
)

// Assembler renders the ranked candidate table into the human-facing
// artifacts: the truncated top-N table, the narrative summary, and the flat
// gene list handed to the external enrichment collaborator. Presentation
// only; every number it prints was computed upstream.
type Assembler struct {
	cfg config.ReportConfig
}

// NewAssembler creates a report assembler
func NewAssembler(cfg config.ReportConfig) *Assembler {
	return &Assembler{cfg: cfg}
}

// TopTable truncates the ranked table to the configured top-N for export
func (a *Assembler) TopTable(ranked []score.ScoredCandidate) *tabular.Table {
	n := a.cfg.TopNTable
	if n > len(ranked) {
		n = len(ranked)
	}
	return RankedToTable(ranked[:n])
}

// Narrative renders the fixed-template text block for the top candidates
func (a *Assembler) Narrative(ranked []score.ScoredCandidate) string {
	n := a.cfg.TopNNarrative
	if n > len(ranked) {
		n = len(ranked)
	}

	var b strings.Builder
	b.WriteString("# PAH drug-target prioritization: top candidates\n\n")
	if n == 0 {
		b.WriteString("No candidates were ranked.\n")
		return b.String()
	}
	for _, sc := range ranked[:n] {
		fmt.Fprintf(&b, "## %d. %s -> %s\n\n", sc.Rank, sc.Pair.DrugName, sc.Pair.TargetGene)
		fmt.Fprintf(&b, "- ChEMBL molecule: %s\n", sc.Pair.MoleculeChemblID)
		fmt.Fprintf(&b, "- Composite score: %s\n", tabular.FormatFloat(sc.CompositeScore))
		fmt.Fprintf(&b, "- Lung enrichment: %s\n", tabular.FormatFloat(sc.LungEnriched))
		fmt.Fprintf(&b, "- PAH lung upregulation: %s\n", tabular.FormatFloat(sc.PAHLungUp))
		fmt.Fprintf(&b, "- PAH RV downregulation: %s\n", tabular.FormatFloat(sc.PAHRVDown))
		fmt.Fprintf(&b, "- Vascular specificity: %s\n", tabular.FormatFloat(sc.VascularComponent))
		fmt.Fprintf(&b, "- Rationale: %s\n\n", Rationale(sc))
	}
	return b.String()
}

// NarrativeHTML renders the narrative as HTML for lab-facing sharing
func (a *Assembler) NarrativeHTML(ranked []score.ScoredCandidate) []byte {
	return markdown.ToHTML([]byte(a.Narrative(ranked)), nil, nil)
}

// TopGenes returns the distinct target genes of the top candidates in rank
// order, the flat list the enrichment-annotation collaborator consumes.
func (a *Assembler) TopGenes(ranked []score.ScoredCandidate) []string {
	seen := make(map[string]struct{})
	var genes []string
	for _, sc := range ranked {
		if len(genes) >= a.cfg.TopNGenes {
			break
		}
		g := sc.Pair.TargetGene.String()
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		genes = append(genes, g)
	}
	return genes
}

// Rationale selects the templated therapeutic-rationale sentence for a
// candidate from the axes it satisfies.
func Rationale(sc score.ScoredCandidate) string {
	var parts []string
	if sc.PAHLungUp >= 1 {
		parts = append(parts, rationaleInhibit)
	}
	if sc.PAHRVDown >= 1 {
		parts = append(parts, rationaleActivate)
	}
	if sc.LungEnriched >= 1 {
		parts = append(parts, rationaleLungSelect)
	}
	if sc.VascularComponent > 0 {
		parts = append(parts, rationaleVascular)
	}
	if len(parts) == 0 {
		return rationaleContextClear
	}
	return strings.Join(parts, " ")
}
