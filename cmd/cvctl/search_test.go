package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
	"github.com/fairyhunter13/ai-cv-search/internal/seed"
)

// skillAxis embeds Go-heavy profiles and queries on one axis and everything else on the other.
type skillAxis struct{}

func axis(goHeavy bool) []float32 {
	if goHeavy {
		return []float32{1, 0}
	}
	return []float32{0, 1}
}

func (skillAxis) EmbedProfile(_ context.Context, p domain.CandidateProfile) domain.EmbeddingPair {
	v := axis(len(p.Skills) > 0 && p.Skills[0] == "Go")
	return domain.EmbeddingPair{Experience: v, Skills: v}
}

func (skillAxis) EmbedQuery(_ context.Context, text string) (domain.EmbeddingPair, error) {
	v := axis(text == "golang")
	return domain.EmbeddingPair{Experience: v, Skills: v}, nil
}

const seedYAML = `
candidates:
  - full_name: Gopher
    email: g@example.com
    phone: "1"
    location: Jakarta
    skills: [Go]
    education:
      - institution: ITB
        degree: Master of Science
        start_date: 2015-01-01
        end_date: 2017-01-01
  - full_name: Pythonista
    email: p@example.com
    phone: "2"
    location: Surabaya
    skills: [Python]
`

func writeSeedFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(p, []byte(seedYAML), 0o600))
	return p
}

func TestSearchFlags_Query(t *testing.T) {
	t.Parallel()
	f := searchFlags{q: " go ", skills: []string{"Go"}, location: "Jakarta", education: "master", minYears: 2, limit: 500, offset: -1}

	q := f.query(false)
	assert.Equal(t, "go", q.Text)
	assert.Nil(t, q.Filters.MinExperienceYears)
	assert.Equal(t, domain.MaxSearchLimit, q.Limit)
	assert.Zero(t, q.Offset)
	assert.Equal(t, domain.EducationMaster, q.Filters.EducationLevel)

	q = f.query(true)
	require.NotNil(t, q.Filters.MinExperienceYears)
	assert.InDelta(t, 2.0, *q.Filters.MinExperienceYears, 1e-9)
}

func TestMemoryService_SeedAndSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := memoryService(skillAxis{})
	res, err := seed.File(ctx, svc, writeSeedFile(t))
	require.NoError(t, err)
	require.Len(t, res.Imported, 2)

	ranked, err := svc.SemanticSearch(ctx, searchFlags{q: "golang", limit: 10}.query(false))
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Gopher", ranked[0].Candidate.Profile.FullName)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)

	filtered, err := svc.FilterSearch(ctx, searchFlags{education: "bachelor", limit: 10}.query(false))
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Gopher", filtered[0].Candidate.Profile.FullName)

	_, err = svc.FilterSearch(ctx, searchFlags{education: "kindergarten"}.query(false))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRunSeed_DryRun(t *testing.T) {
	seedDryRun = true
	t.Cleanup(func() { seedDryRun = false })

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, runSeed(cmd, []string{writeSeedFile(t)}))
	assert.Equal(t, "Gopher\tseed.yaml\t1 skills\nPythonista\tseed.yaml\t1 skills\n", out.String())
}

func TestPrintJSON(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	require.NoError(t, printJSON(&out, map[string]int{"count": 1}))
	assert.Equal(t, "{\n  \"count\": 1\n}\n", out.String())
}
