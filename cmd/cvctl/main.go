// Command cvctl runs extraction, seeding and search from the command line.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/ai-cv-search/internal/adapter/observability"
	"github.com/fairyhunter13/ai-cv-search/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "cvctl",
	Short:         "CV extraction and candidate search tool",
	Long:          "cvctl extracts structured candidate profiles from CVs, seeds candidates from YAML and searches the candidate store.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		slog.SetDefault(observability.SetupLogger(cfg))
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
