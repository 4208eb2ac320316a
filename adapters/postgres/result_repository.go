package postgres

import (
	"context"
	"encoding/json"
	"math"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"pahscreen/domain/core"
	"pahscreen/domain/run"
	"pahscreen/domain/score"
	"pahscreen/internal/errors"
	"pahscreen/ports"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	run_id             TEXT PRIMARY KEY,
	config_fingerprint TEXT NOT NULL,
	code_version       TEXT,
	stages             JSONB NOT NULL,
	stage_row_counts   JSONB NOT NULL,
	started_at         TIMESTAMPTZ NOT NULL,
	finished_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS ranked_candidates (
	run_id             TEXT NOT NULL REFERENCES pipeline_runs(run_id),
	rank               INT NOT NULL,
	drug_name          TEXT NOT NULL,
	molecule_chembl_id TEXT NOT NULL,
	target_gene_symbol TEXT NOT NULL,
	pchembl_value      DOUBLE PRECISION,
	lung_enriched      DOUBLE PRECISION NOT NULL,
	pah_lung_up        DOUBLE PRECISION NOT NULL,
	pah_rv_down        DOUBLE PRECISION NOT NULL,
	vascular_component DOUBLE PRECISION NOT NULL,
	composite_score    DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, rank)
);`

// resultRepository implements the ResultRepository interface
type resultRepository struct {
	db *sqlx.DB
}

// NewResultRepository connects to the warehouse and ensures the schema exists
func NewResultRepository(databaseURL string) (ports.ResultRepository, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to warehouse", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to ensure warehouse schema", err)
	}
	return &resultRepository{db: db}, nil
}

// SaveRun inserts the run manifest
func (r *resultRepository) SaveRun(ctx context.Context, manifest run.Manifest) error {
	if err := manifest.Validate(); err != nil {
		return errors.DatabaseError("refusing to persist invalid manifest", err)
	}
	stagesJSON, err := json.Marshal(manifest.Stages)
	if err != nil {
		return errors.DatabaseError("failed to marshal stages", err)
	}
	countsJSON, err := json.Marshal(manifest.StageRowCounts)
	if err != nil {
		return errors.DatabaseError("failed to marshal stage row counts", err)
	}

	query := `INSERT INTO pipeline_runs (
		run_id, config_fingerprint, code_version, stages, stage_row_counts, started_at, finished_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.ExecContext(ctx, query,
		manifest.RunID, manifest.ConfigFingerprint, manifest.CodeVersion,
		stagesJSON, countsJSON, manifest.StartedAt, manifest.FinishedAt,
	)
	if err != nil {
		return errors.DatabaseError("failed to insert pipeline run", err)
	}
	return nil
}

// SaveCandidates bulk-inserts the ranked table for a run inside one transaction
func (r *resultRepository) SaveCandidates(ctx context.Context, runID core.RunID, ranked []score.ScoredCandidate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO ranked_candidates (
		run_id, rank, drug_name, molecule_chembl_id, target_gene_symbol, pchembl_value,
		lung_enriched, pah_lung_up, pah_rv_down, vascular_component, composite_score
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for _, sc := range ranked {
		_, err := tx.ExecContext(ctx, query,
			runID, sc.Rank, sc.Pair.DrugName, sc.Pair.MoleculeChemblID, sc.Pair.TargetGene,
			nullableFloat(sc.Pair.PChembl),
			sc.LungEnriched, sc.PAHLungUp, sc.PAHRVDown, sc.VascularComponent, sc.CompositeScore,
		)
		if err != nil {
			return errors.DatabaseError("failed to insert ranked candidate", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit ranked candidates", err)
	}
	return nil
}

// Close releases the database connection
func (r *resultRepository) Close() error {
	return r.db.Close()
}

// nullableFloat maps NaN to SQL NULL
func nullableFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
