package app

import (
	"encoding/json"

	"pahscreen/adapters/excel"
	"pahscreen/adapters/tabular"
	"pahscreen/domain/score"
	"pahscreen/internal/errors"
	"pahscreen/internal/pipeline"
)

// writeManifest serializes the run manifest as the last artifact of a run
func (s *PipelineService) writeManifest() error {
	data, err := json.MarshalIndent(s.manifest, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal run manifest")
	}
	return tabular.WriteText(s.path(manifestFile), append(data, '\n'))
}

// writeWorkbook exports the full ranked table and the truncated top table
// into one xlsx workbook.
func (s *PipelineService) writeWorkbook(ranked []score.ScoredCandidate) error {
	asm := pipeline.NewAssembler(s.cfg.Report)
	w := excel.NewReportWriter()
	if err := w.AddSheet("ranked_candidates", pipeline.RankedToTable(ranked)); err != nil {
		return err
	}
	if err := w.AddSheet("top_candidates", asm.TopTable(ranked)); err != nil {
		return err
	}
	return w.Save(s.path(workbookFile))
}
