package httpserver

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

func TestParseSearch(t *testing.T) {
	t.Parallel()
	q, details, err := parseSearch(url.Values{
		"q":                    {"  backend engineer "},
		"skills":               {"Go, Kafka", "SQL", " "},
		"location":             {" Jakarta "},
		"education_level":      {"master"},
		"min_experience_years": {"2.5"},
		"offset":               {"4"},
	})
	require.NoError(t, err)
	assert.Nil(t, details)
	assert.Equal(t, "backend engineer", q.Text)
	assert.Equal(t, []string{"Go", "Kafka", "SQL"}, q.Filters.RequiredSkills)
	assert.Equal(t, "Jakarta", q.Filters.Location)
	assert.Equal(t, domain.EducationLevel("master"), q.Filters.EducationLevel)
	require.NotNil(t, q.Filters.MinExperienceYears)
	assert.InDelta(t, 2.5, *q.Filters.MinExperienceYears, 1e-9)
	assert.Equal(t, domain.DefaultSearchLimit, q.Limit)
	assert.Equal(t, 4, q.Offset)
}

func TestParseSearch_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		values  url.Values
		details map[string]string
	}{
		{"limit not a number", url.Values{"limit": {"ten"}}, map[string]string{"limit": "number"}},
		{"years not a number", url.Values{"min_experience_years": {"lots"}}, map[string]string{"min_experience_years": "number"}},
		{"limit above max", url.Values{"limit": {"101"}}, map[string]string{"limit": "lte"}},
		{"negative years", url.Values{"min_experience_years": {"-3"}}, map[string]string{"min_experience_years": "gte"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, details, err := parseSearch(tt.values)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
			assert.Equal(t, tt.details, details)
		})
	}
}

func TestParsePageAndListing(t *testing.T) {
	t.Parallel()
	page, _, err := parsePage(url.Values{"limit": {"5"}, "offset": {"10"}})
	require.NoError(t, err)
	assert.Equal(t, pageRequest{Limit: 5, Offset: 10}, page)

	_, details, err := parsePage(url.Values{"offset": {"-1"}})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, map[string]string{"offset": "gte"}, details)

	limit, _, err := parseListing(url.Values{"limit": {"1000"}})
	require.NoError(t, err)
	assert.Equal(t, 1000, limit)

	_, _, err = parseListing(url.Values{"limit": {"1001"}})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestToSnake(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"Limit":              "limit",
		"MinExperienceYears": "min_experience_years",
		"FullName":           "full_name",
		"q":                  "q",
	}
	for in, want := range tests {
		assert.Equal(t, want, toSnake(in), in)
	}
}

func TestProfileRequest_ToProfile(t *testing.T) {
	t.Parallel()
	p := profileRequest{FullName: " Jane ", Email: "j@x.io", Phone: "1", Location: " Bandung "}.toProfile()
	assert.Equal(t, "Jane", p.FullName)
	assert.Equal(t, "Bandung", p.Location)
	assert.NotNil(t, p.Skills)
	assert.NotNil(t, p.Education)
	assert.NotNil(t, p.WorkExperience)
	assert.NotNil(t, p.Projects)
	assert.NotNil(t, p.Certifications)
}
