package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/ai-cv-search/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/ai-cv-search/internal/app"
	"github.com/fairyhunter13/ai-cv-search/pkg/textx"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract a structured candidate profile from a CV",
	Long:  "Reads a .txt file directly or sends PDF/DOCX files through Tika, runs the extraction pipeline and prints the profile as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var extractTextOnly bool

func init() {
	extractCmd.Flags().BoolVar(&extractTextOnly, "text-only", false, "Print the normalized document text and skip the model")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	text, err := readDocument(ctx, args[0])
	if err != nil {
		return err
	}
	text = textx.Normalize(text)
	if extractTextOnly {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}
	if text == "" {
		return fmt.Errorf("no text found in %s", args[0])
	}

	pipeline := app.NewPipeline(cfg, app.NewAIClient(cfg, nil))
	profile, err := pipeline.Run(ctx, text)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), profile)
}

func readDocument(ctx context.Context, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		b, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(b), nil
	}
	client := tika.New(cfg.TikaURL, tika.WithTimeout(cfg.AICallTimeout))
	text, err := client.ExtractPath(ctx, filepath.Base(path), path)
	if err != nil {
		return "", fmt.Errorf("tika extraction failed: %w", err)
	}
	return text, nil
}
