package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"pahscreen/internal"
	"pahscreen/internal/errors"
)

// Stage is one named unit of pipeline work. Each stage owns its output
// files and never writes another stage's artifacts.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes stages and halts the pipeline on the first failure,
// naming the failing stage in the returned error.
type Runner struct {
	logger *internal.Logger
}

// NewRunner creates a stage runner
func NewRunner(logger *internal.Logger) *Runner {
	return &Runner{logger: logger}
}

// RunSequential executes stages in order. Later stages never run after an
// earlier one fails.
func (r *Runner) RunSequential(ctx context.Context, stages ...Stage) error {
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "pipeline canceled before stage %s", stage.Name)
		}
		start := time.Now()
		r.logger.Info("stage %s: starting", stage.Name)
		if err := stage.Run(ctx); err != nil {
			r.logger.Error("stage %s: failed after %s: %v", stage.Name, time.Since(start).Round(time.Millisecond), err)
			return errors.Wrapf(err, "stage %s failed", stage.Name)
		}
		r.logger.Info("stage %s: completed in %s", stage.Name, time.Since(start).Round(time.Millisecond))
	}
	return nil
}

// RunParallel executes independent stages concurrently. Safe only for
// stages with disjoint outputs, in practice the four axis scorers.
func (r *Runner) RunParallel(ctx context.Context, stages ...Stage) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, stage := range stages {
		stage := stage
		g.Go(func() error {
			start := time.Now()
			r.logger.Info("stage %s: starting", stage.Name)
			if err := stage.Run(gctx); err != nil {
				r.logger.Error("stage %s: failed after %s: %v", stage.Name, time.Since(start).Round(time.Millisecond), err)
				return errors.Wrapf(err, "stage %s failed", stage.Name)
			}
			r.logger.Info("stage %s: completed in %s", stage.Name, time.Since(start).Round(time.Millisecond))
			return nil
		})
	}
	return g.Wait()
}
