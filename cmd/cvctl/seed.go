package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/ai-cv-search/internal/app"
	"github.com/fairyhunter13/ai-cv-search/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed <yaml>",
	Short: "Import candidate profiles from a YAML seed file",
	Long:  "Loads structured candidate profiles from YAML, embeds them and stores them in Postgres and Qdrant.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

var seedDryRun bool

func init() {
	seedCmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "Validate the file and list the candidates without storing them")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if seedDryRun {
		entries, err := seed.Load(args[0])
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d skills\n", e.FullName, e.Source, len(e.Skills))
		}
		return nil
	}

	comps, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer comps.Close()
	if err := app.EnsureCandidateCollection(ctx, comps.Vectors, 30*time.Second); err != nil {
		return fmt.Errorf("qdrant not ready: %w", err)
	}
	res, err := seed.File(ctx, comps.Candidates, args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}
