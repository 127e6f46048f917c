package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lmsynth/lmsynth/internal/config"
	"github.com/lmsynth/lmsynth/internal/domain/reference"
	"github.com/lmsynth/lmsynth/internal/domain/scenario"
	"github.com/lmsynth/lmsynth/internal/platform/db"
	"github.com/lmsynth/lmsynth/internal/platform/seed"
)

func computeCmd() *cobra.Command {
	var (
		requestPath string
		useFixture  bool
		genCfg      = seed.DefaultConfig()
	)

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute a scenario from a JSON request and print the response",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd.InOrStdin(), requestPath)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()

			if useFixture {
				fixture := seed.NewGenerator(genCfg).Generate().Fixture()
				return runCompute(ctx, cmd.OutOrStdout(), fixture, req, cfg.ScenarioFetchConcurrency)
			}

			if err := cfg.RequireDatabase(); err != nil {
				return fmt.Errorf("%w (or pass --fixture)", err)
			}
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()
			return runCompute(ctx, cmd.OutOrStdout(), reference.NewRepo(pool), req, cfg.ScenarioFetchConcurrency)
		},
	}

	cmd.Flags().StringVar(&requestPath, "request", "-", "Path to the scenario request JSON, or - for stdin")
	cmd.Flags().BoolVar(&useFixture, "fixture", false, "Use generated in-memory reference data instead of Postgres")
	cmd.Flags().Int64Var(&genCfg.Seed, "seed", genCfg.Seed, "Seed for --fixture data")
	cmd.Flags().IntVar(&genCfg.Sites, "sites", genCfg.Sites, "Number of sites for --fixture data")
	return cmd
}

func readRequest(stdin io.Reader, path string) (scenario.ScenarioRequest, error) {
	var req scenario.ScenarioRequest

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return req, fmt.Errorf("open request: %w", err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

func runCompute(ctx context.Context, out io.Writer, provider reference.Provider, req scenario.ScenarioRequest, concurrency int) error {
	svc := scenario.NewService(provider,
		scenario.WithLogger(zerolog.Nop()),
		scenario.WithConcurrency(concurrency),
	)
	resp, err := svc.Compute(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
