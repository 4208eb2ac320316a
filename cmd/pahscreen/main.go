package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pahscreen/adapters/postgres"
	"pahscreen/app"
	"pahscreen/internal"
	"pahscreen/internal/config"
	"pahscreen/ports"
)

func main() {
	// .env is optional, environment variables alone are fine
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "pahscreen",
		Short: "Multi-axis transcriptomic screen for PAH drug-target prioritization",
		Long: `pahscreen scores drug-gene-tissue associations for pulmonary arterial
hypertension across four evidence axes (lung enrichment, PAH lung DEG,
right-ventricle cardioprotection, pulmonary vascular specificity), joins
them onto a drug-target knowledge base, and ranks candidates by a
weighted composite score.`,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newStageCmd(),
		newReportCmd(),
		newCompareCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildService loads config and wires the service, connecting the optional
// warehouse only when requested.
func buildService(withWarehouse bool) (*app.PipelineService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := internal.NewDefaultLogger()

	var repo ports.ResultRepository
	cleanup := func() {}
	if withWarehouse && cfg.Database.URL != "" {
		repo, err = postgres.NewResultRepository(cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { repo.Close() }
	}
	return app.NewPipelineService(cfg, logger, repo), cleanup, nil
}

// signalContext cancels on SIGINT/SIGTERM so partial stage output is the
// temp file, never a truncated artifact.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newRunCmd() *cobra.Command {
	var persist bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := buildService(persist)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()
			return svc.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&persist, "persist", false, "persist the run to the warehouse (requires DATABASE_URL)")
	return cmd
}

func newStageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Run a single pipeline stage",
	}

	stages := []struct {
		name  string
		short string
		run   func(*app.PipelineService, context.Context) error
	}{
		{"lung", "Score lung enrichment vs control tissues", (*app.PipelineService).ScoreLung},
		{"pah-lung", "Score PAH lung vs control differential expression", (*app.PipelineService).ScorePAHLung},
		{"rv", "Score PAH right-ventricle differential expression", (*app.PipelineService).ScoreRV},
		{"vascular", "Score pulmonary vascular specificity", (*app.PipelineService).ScoreVascular},
		{"join", "Map drug targets to gene symbols and join axis evidence", (*app.PipelineService).MapAndJoin},
		{"rank", "Compute composite scores and rank candidates", (*app.PipelineService).Rank},
	}
	for _, st := range stages {
		st := st
		cmd.AddCommand(&cobra.Command{
			Use:   st.name,
			Short: st.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, cleanup, err := buildService(false)
				if err != nil {
					return err
				}
				defer cleanup()

				ctx, cancel := signalContext()
				defer cancel()
				return st.run(svc, ctx)
			},
		})
	}
	return cmd
}

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Assemble the top-candidate report from the ranked table",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := buildService(false)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()
			return svc.Report(ctx)
		},
	}
}

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare",
		Short: "Compare ranked candidates against approved PAH therapies",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := buildService(false)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := signalContext()
			defer cancel()
			return svc.Compare(ctx)
		},
	}
}
