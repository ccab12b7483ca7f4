// Package seed loads structured candidate profiles from YAML files.
//
// Seed files skip extraction: each entry is already a CandidateProfile and
// goes straight to embedding and storage. Two shapes are accepted, a document
// with a top-level "candidates" list or a bare list of profiles.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	obsctx "github.com/fairyhunter13/ai-cv-search/internal/observability"
)

// Importer stores a structured profile.
type Importer interface {
	Import(ctx context.Context, filename string, p domain.CandidateProfile) (domain.Candidate, error)
}

// Entry is one candidate in a seed file.
type Entry struct {
	Source                  string `yaml:"source"`
	domain.CandidateProfile `yaml:",inline"`
}

type seedDoc struct {
	Candidates []Entry `yaml:"candidates"`
}

// Result summarizes a seeding run.
type Result struct {
	Imported []string `json:"imported"`
	Skipped  int      `json:"skipped"`
}

// Load reads and parses path. Entries repeating an earlier full_name and
// email pair are dropped.
func Load(path string) ([]Entry, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: seed file not found: %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("op=seed.Load: %w", err)
	}
	entries, err := parse(b)
	if err != nil {
		return nil, fmt.Errorf("op=seed.Load: %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no candidates to seed in %s", domain.ErrInvalidArgument, path)
	}
	for i, e := range entries {
		if strings.TrimSpace(e.FullName) == "" {
			return nil, fmt.Errorf("%w: %s: entry %d has no full_name", domain.ErrInvalidArgument, path, i)
		}
		if e.Source == "" {
			entries[i].Source = filepath.Base(path)
		}
	}
	return dedupe(entries), nil
}

func parse(b []byte) ([]Entry, error) {
	var doc seedDoc
	docErr := yaml.Unmarshal(b, &doc)
	if docErr == nil && len(doc.Candidates) > 0 {
		return doc.Candidates, nil
	}
	var list []Entry
	if err := yaml.Unmarshal(b, &list); err != nil {
		if docErr != nil {
			return nil, fmt.Errorf("%w: yaml parse: %v", domain.ErrInvalidArgument, docErr)
		}
		return nil, nil
	}
	return list, nil
}

func dedupe(entries []Entry) []Entry {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, e := range entries {
		key := strings.ToLower(strings.TrimSpace(e.FullName)) + "\x00" + strings.ToLower(strings.TrimSpace(e.Email))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

// File loads path and imports every entry in order. It stops at the first
// import failure and returns what was imported so far.
func File(ctx context.Context, imp Importer, path string) (Result, error) {
	entries, err := Load(path)
	if err != nil {
		return Result{}, err
	}
	lg := obsctx.LoggerFromContext(ctx).With(slog.String("op", "seed.File"), slog.String("path", path))
	var res Result
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			res.Skipped = len(entries) - i
			return res, err
		}
		c, err := imp.Import(ctx, e.Source, e.CandidateProfile.Normalized())
		if err != nil {
			res.Skipped = len(entries) - i
			return res, fmt.Errorf("op=seed.File: entry %d (%s): %w", i, e.FullName, err)
		}
		res.Imported = append(res.Imported, c.ID)
	}
	lg.Info("seed file imported", slog.Int("candidates", len(res.Imported)))
	return res, nil
}
