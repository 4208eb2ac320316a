package ports

import (
	"context"

	"pahscreen/domain/core"
	"pahscreen/domain/run"
	"pahscreen/domain/score"
)

// ResultRepository persists completed pipeline runs to a warehouse for
// cross-run history queries. Filesystem artifacts remain the source of
// truth; this store is optional.
type ResultRepository interface {
	SaveRun(ctx context.Context, manifest run.Manifest) error
	SaveCandidates(ctx context.Context, runID core.RunID, ranked []score.ScoredCandidate) error
	Close() error
}
