package app

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"pahscreen/adapters/geo"
	"pahscreen/adapters/tabular"
	"pahscreen/domain/core"
	"pahscreen/domain/expr"
	"pahscreen/domain/run"
	"pahscreen/domain/score"
	"pahscreen/internal"
	"pahscreen/internal/config"
	"pahscreen/internal/errors"
	"pahscreen/internal/idmap"
	"pahscreen/internal/pipeline"
	"pahscreen/internal/scoring"
	"pahscreen/ports"
)

// CodeVersion is stamped into run manifests
const CodeVersion = "0.3.0"

// Stage output locations under the results directory. Stable names so
// downstream consumers and re-runs always find the same files.
const (
	lungScoresFile     = "step1_outputs/lung_enrichment.csv"
	pahLungScoresFile  = "step2_outputs/pah_lung_deg.csv"
	pahLungUpFile      = "step2_outputs/upregulated_in_pah.csv"
	pahLungDownFile    = "step2_outputs/downregulated_in_pah.csv"
	rvScoresFile       = "step3_outputs/pah_rv_deg.csv"
	rvUpFile           = "step3_outputs/upregulated_in_rv.csv"
	rvDownFile         = "step3_outputs/downregulated_in_rv.csv"
	vascularScoresFile = "step4_outputs/lung_vascular_specificity_scores.csv"
	vascularTopFile    = "step4_outputs/top100_lung_vascular_enriched.csv"
	candidatesFile     = "step5_outputs/drug_target_axes.csv"
	rankedFile         = "step6_outputs/prioritized_pah_candidates.csv"
	topTableFile       = "step7_outputs/top_candidates.csv"
	narrativeFile      = "step7_outputs/top_candidates.txt"
	topGenesFile       = "step7_outputs/top_genes.txt"
	reportHTMLFile     = "step7_outputs/report.html"
	workbookFile       = "step7_outputs/prioritized_candidates.xlsx"
	manifestFile       = "run_manifest.json"
	comparisonFile     = "step9_outputs/comparison_with_approved.csv"
	repurposingFile    = "step9_outputs/repurposing_summary.txt"
)

// PipelineService orchestrates the full screen: four axis scorers, the
// drug-target join, composite ranking, and report assembly. Every stage
// reads its inputs from and writes its outputs to the results directory,
// so stages can also be re-run individually.
type PipelineService struct {
	cfg    *config.Config
	logger *internal.Logger
	runner *pipeline.Runner
	repo   ports.ResultRepository // nil when no warehouse is configured

	mu       sync.Mutex
	manifest *run.Manifest
}

// NewPipelineService creates the orchestrator. repo may be nil.
func NewPipelineService(cfg *config.Config, logger *internal.Logger, repo ports.ResultRepository) *PipelineService {
	return &PipelineService{
		cfg:    cfg,
		logger: logger,
		runner: pipeline.NewRunner(logger),
		repo:   repo,
	}
}

func (s *PipelineService) path(rel string) string {
	return filepath.Join(s.cfg.Results.Dir, rel)
}

func (s *PipelineService) recordStage(name string, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manifest != nil {
		s.manifest.RecordStage(name, rows)
	}
}

// Run executes the whole pipeline. The four axis stages are independent
// and run concurrently; everything downstream of the join is ordered.
func (s *PipelineService) Run(ctx context.Context) error {
	fingerprint, err := core.ConfigFingerprint(s.cfg)
	if err != nil {
		return errors.Wrap(err, "failed to fingerprint config")
	}
	s.manifest = run.NewManifest(fingerprint, CodeVersion)
	s.logger.Info("run %s starting, config fingerprint %s", s.manifest.RunID, fingerprint)

	axisStages := []pipeline.Stage{
		{Name: "lung_enrichment", Run: s.ScoreLung},
		{Name: "pah_lung_deg", Run: s.ScorePAHLung},
		{Name: "pah_rv_deg", Run: s.ScoreRV},
		{Name: "vascular_specificity", Run: s.ScoreVascular},
	}
	if err := s.runner.RunParallel(ctx, axisStages...); err != nil {
		return err
	}

	tail := []pipeline.Stage{
		{Name: "drug_target_join", Run: s.MapAndJoin},
		{Name: "composite_ranking", Run: s.Rank},
		{Name: "report_assembly", Run: s.Report},
	}
	if err := s.runner.RunSequential(ctx, tail...); err != nil {
		return err
	}

	s.manifest.Finish()
	if err := s.writeManifest(); err != nil {
		return err
	}

	if s.repo != nil {
		if err := s.persist(ctx); err != nil {
			return err
		}
	}
	s.logger.Info("run %s complete", s.manifest.RunID)
	return nil
}

// loadMatrix reads one series matrix, assigns groups, and canonicalizes
// gene identifiers through the configured mapping table.
func (s *PipelineService) loadMatrix(src config.GEOSource) (*expr.Matrix, error) {
	mat, err := geo.ReadSeriesMatrix(src.Path, filepath.Base(src.Path))
	if err != nil {
		return nil, err
	}
	if err := mat.AssignGroups(src.CaseRules, src.ControlRules, src.CaseGroup, src.ControlGroup); err != nil {
		return nil, err
	}
	mapper, err := s.mapper()
	if err != nil {
		return nil, err
	}
	return mapper.CanonicalizeMatrix(mat, s.cfg.Mapping.MaxUnresolvedFraction)
}

func (s *PipelineService) mapper() (*idmap.Mapper, error) {
	if s.cfg.Mapping.Path == "" {
		return idmap.Identity(), nil
	}
	return idmap.LoadTable(s.cfg.Mapping.Path, s.cfg.Mapping.FromColumn, s.cfg.Mapping.ToColumn)
}

// scoreAxis runs one scorer over its source and writes the full score table
func (s *PipelineService) scoreAxis(src config.GEOSource, scorer scoring.AxisScorer, outFile string) ([]score.GeneScore, error) {
	mat, err := s.loadMatrix(src)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("%s: %d genes, %d samples", scorer.Axis(), len(mat.Genes), len(mat.Samples))
	scores, err := scorer.Score(mat)
	if err != nil {
		return nil, err
	}
	if err := tabular.WriteCSV(s.path(outFile), pipeline.AxisScoresToTable(scores)); err != nil {
		return nil, err
	}
	return scores, nil
}

// ScoreLung runs the lung-enrichment specificity axis
func (s *PipelineService) ScoreLung(ctx context.Context) error {
	src := s.cfg.Inputs.Lung
	scorer := scoring.NewSpecificityScorer(score.AxisLung, src.CaseGroup, src.ControlGroup,
		score.StatusLungEnriched, score.StatusLungDepleted, s.cfg.Axes.Lung)
	scores, err := s.scoreAxis(src, scorer, lungScoresFile)
	if err != nil {
		return err
	}
	s.recordStage("lung_enrichment", len(scores))
	return nil
}

// ScorePAHLung runs the PAH lung differential-expression axis and writes
// the directional splits alongside the full table.
func (s *PipelineService) ScorePAHLung(ctx context.Context) error {
	src := s.cfg.Inputs.PAHLung
	scorer := scoring.NewDifferentialScorer(score.AxisPAHLung, src.CaseGroup, src.ControlGroup,
		score.StatusUpInPAH, score.StatusDownInPAH, s.cfg.Axes.PAHLung)
	scores, err := s.scoreAxis(src, scorer, pahLungScoresFile)
	if err != nil {
		return err
	}
	if err := s.writeSplit(scores, score.StatusUpInPAH, pahLungUpFile); err != nil {
		return err
	}
	if err := s.writeSplit(scores, score.StatusDownInPAH, pahLungDownFile); err != nil {
		return err
	}
	s.recordStage("pah_lung_deg", len(scores))
	return nil
}

// ScoreRV runs the right-ventricle cardioprotection axis with splits
func (s *PipelineService) ScoreRV(ctx context.Context) error {
	src := s.cfg.Inputs.RV
	scorer := scoring.NewDifferentialScorer(score.AxisRV, src.CaseGroup, src.ControlGroup,
		score.StatusUpInRV, score.StatusDownInRV, s.cfg.Axes.RV)
	scores, err := s.scoreAxis(src, scorer, rvScoresFile)
	if err != nil {
		return err
	}
	if err := s.writeSplit(scores, score.StatusUpInRV, rvUpFile); err != nil {
		return err
	}
	if err := s.writeSplit(scores, score.StatusDownInRV, rvDownFile); err != nil {
		return err
	}
	s.recordStage("pah_rv_deg", len(scores))
	return nil
}

// ScoreVascular runs the vascular-specificity axis and exports the
// top-100 vascular-enriched genes for collaborator review.
func (s *PipelineService) ScoreVascular(ctx context.Context) error {
	src := s.cfg.Inputs.Vascular
	scorer := scoring.NewSpecificityScorer(score.AxisVascular, src.CaseGroup, src.ControlGroup,
		score.StatusVascularEnriched, score.StatusVascularDepleted, s.cfg.Axes.Vascular)
	scores, err := s.scoreAxis(src, scorer, vascularScoresFile)
	if err != nil {
		return err
	}
	if err := s.writeTopVascular(scores, 100); err != nil {
		return err
	}
	s.recordStage("vascular_specificity", len(scores))
	return nil
}

// writeSplit writes the subset of genes carrying one directional status
func (s *PipelineService) writeSplit(scores []score.GeneScore, status score.Status, outFile string) error {
	var subset []score.GeneScore
	for _, g := range scores {
		if g.Status == status {
			subset = append(subset, g)
		}
	}
	return tabular.WriteCSV(s.path(outFile), pipeline.AxisScoresToTable(subset))
}

// writeTopVascular exports the n highest-scoring tested genes by log2fc
func (s *PipelineService) writeTopVascular(scores []score.GeneScore, n int) error {
	var tested []score.GeneScore
	for _, g := range scores {
		if g.Tested() {
			tested = append(tested, g)
		}
	}
	sort.SliceStable(tested, func(i, j int) bool {
		if tested[i].Log2FC != tested[j].Log2FC {
			return tested[i].Log2FC > tested[j].Log2FC
		}
		return tested[i].Gene < tested[j].Gene
	})
	if n > len(tested) {
		n = len(tested)
	}
	return tabular.WriteCSV(s.path(vascularTopFile), pipeline.AxisScoresToTable(tested[:n]))
}

// readAxisTable loads one previously written axis score table
func (s *PipelineService) readAxisTable(rel string, axis score.Axis) (*score.AxisTable, error) {
	t, err := tabular.ReadCSV(s.path(rel), tabular.Schema{
		Name:     string(axis),
		Required: []string{"gene_symbol", "log2fc", "q_value", "status"},
	})
	if err != nil {
		return nil, err
	}
	return pipeline.ParseAxisTable(t, axis)
}

// MapAndJoin loads the drug knowledge base, resolves target identifiers to
// gene symbols, and left-joins the four axis tables onto each pair.
func (s *PipelineService) MapAndJoin(ctx context.Context) error {
	mapper, err := s.mapper()
	if err != nil {
		return err
	}
	pairs, err := pipeline.LoadDrugTargets(s.cfg.Drugs, mapper, s.cfg.Mapping.MaxUnresolvedFraction)
	if err != nil {
		return err
	}

	lung, err := s.readAxisTable(lungScoresFile, score.AxisLung)
	if err != nil {
		return err
	}
	pahLung, err := s.readAxisTable(pahLungScoresFile, score.AxisPAHLung)
	if err != nil {
		return err
	}
	rv, err := s.readAxisTable(rvScoresFile, score.AxisRV)
	if err != nil {
		return err
	}
	vascular, err := s.readAxisTable(vascularScoresFile, score.AxisVascular)
	if err != nil {
		return err
	}

	cands, err := pipeline.JoinCandidates(pairs, lung, pahLung, rv, vascular)
	if err != nil {
		return err
	}
	if err := tabular.WriteCSV(s.path(candidatesFile), pipeline.CandidatesToTable(cands)); err != nil {
		return err
	}
	s.recordStage("drug_target_join", len(cands))
	return nil
}

// Rank computes composite scores over the joined candidates and writes the
// ranked table.
func (s *PipelineService) Rank(ctx context.Context) error {
	t, err := tabular.ReadCSV(s.path(candidatesFile), tabular.Schema{
		Name:     "candidates",
		Required: []string{"drug_name", "molecule_chembl_id", "target_gene_symbol"},
	})
	if err != nil {
		return err
	}
	cands, err := pipeline.ParseCandidateTable(t)
	if err != nil {
		return err
	}
	ranked := score.RankCandidates(cands, s.cfg.Scoring.Weights, s.cfg.Scoring.VascularSaturation)
	if err := tabular.WriteCSV(s.path(rankedFile), pipeline.RankedToTable(ranked)); err != nil {
		return err
	}
	s.recordStage("composite_ranking", len(ranked))
	return nil
}

// readRanked loads the ranked candidate table written by Rank
func (s *PipelineService) readRanked() ([]score.ScoredCandidate, error) {
	t, err := tabular.ReadCSV(s.path(rankedFile), tabular.Schema{
		Name:     "ranked",
		Required: []string{"rank", "drug_name", "target_gene_symbol", "composite_score"},
	})
	if err != nil {
		return nil, err
	}
	return pipeline.ParseRankedTable(t)
}

// Report assembles the human-facing artifacts from the ranked table
func (s *PipelineService) Report(ctx context.Context) error {
	ranked, err := s.readRanked()
	if err != nil {
		return err
	}
	asm := pipeline.NewAssembler(s.cfg.Report)

	if err := tabular.WriteCSV(s.path(topTableFile), asm.TopTable(ranked)); err != nil {
		return err
	}
	narrative := asm.Narrative(ranked)
	if err := tabular.WriteText(s.path(narrativeFile), []byte(narrative)); err != nil {
		return err
	}
	if err := tabular.WriteText(s.path(reportHTMLFile), asm.NarrativeHTML(ranked)); err != nil {
		return err
	}
	genes := asm.TopGenes(ranked)
	geneList := ""
	for _, g := range genes {
		geneList += g + "\n"
	}
	if err := tabular.WriteText(s.path(topGenesFile), []byte(geneList)); err != nil {
		return err
	}
	if err := s.writeWorkbook(ranked); err != nil {
		return err
	}
	s.recordStage("report_assembly", len(ranked))
	return nil
}

// Compare annotates the ranked table against the approved PAH therapy
// reference and writes the repurposing artifacts. Runs outside the core
// pipeline so it can be repeated with updated reference sets.
func (s *PipelineService) Compare(ctx context.Context) error {
	ranked, err := s.readRanked()
	if err != nil {
		return err
	}
	cmp := pipeline.NewComparator(nil, nil, s.cfg.Scoring.RepurposingMinScore)
	rows, err := cmp.Compare(ranked)
	if err != nil {
		return err
	}
	if err := tabular.WriteCSV(s.path(comparisonFile), pipeline.ComparisonToTable(rows)); err != nil {
		return err
	}
	return tabular.WriteText(s.path(repurposingFile), []byte(cmp.RepurposingSummary(rows)))
}

// persist stores the run and its ranked table in the warehouse
func (s *PipelineService) persist(ctx context.Context) error {
	ranked, err := s.readRanked()
	if err != nil {
		return err
	}
	if err := s.repo.SaveRun(ctx, *s.manifest); err != nil {
		return err
	}
	if err := s.repo.SaveCandidates(ctx, s.manifest.RunID, ranked); err != nil {
		return err
	}
	s.logger.Info("run %s persisted to warehouse with %d candidates", s.manifest.RunID, len(ranked))
	return nil
}
