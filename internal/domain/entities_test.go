package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	t.Parallel()

	var rec WorkExperienceRecord
	require.NoError(t, json.Unmarshal([]byte(`{"company":"Acme","position":"Engineer","start_date":"2020-03-01","end_date":null,"description":"x"}`), &rec))
	assert.Equal(t, NewDate(2020, time.March, 1), rec.StartDate)
	assert.Nil(t, rec.EndDate)

	b, err := json.Marshal(rec.StartDate)
	require.NoError(t, err)
	assert.Equal(t, `"2020-03-01"`, string(b))
}

func TestDate_InvalidFormat(t *testing.T) {
	t.Parallel()
	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"03/01/2020"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`2020`), &d))
}

func TestDate_ZeroString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", Date{}.String())
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`""`), &d))
	assert.True(t, d.IsZero())
}

func TestNewSearchQuery(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", 0, 0, DefaultSearchLimit, 0},
		{"clamped", 1000, -5, MaxSearchLimit, 0},
		{"kept", 25, 50, 25, 50},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q := NewSearchQuery("  go developer ", SearchFilters{}, tt.limit, tt.offset)
			assert.Equal(t, "go developer", q.Text)
			assert.Equal(t, tt.wantLimit, q.Limit)
			assert.Equal(t, tt.wantOffset, q.Offset)
		})
	}
}

func TestNewSearchQuery_CopiesSkills(t *testing.T) {
	t.Parallel()
	skills := []string{"Go", "Python"}
	q := NewSearchQuery("", SearchFilters{RequiredSkills: skills}, 10, 0)
	skills[0] = "Rust"
	assert.Equal(t, []string{"Go", "Python"}, q.Filters.RequiredSkills)
}

func TestSearchFilters_Empty(t *testing.T) {
	t.Parallel()
	years := 2.0
	assert.True(t, SearchFilters{Location: "  "}.Empty())
	assert.False(t, SearchFilters{MinExperienceYears: &years}.Empty())
	assert.False(t, SearchFilters{EducationLevel: EducationMaster}.Empty())
}

func TestZeroEmbeddingPair(t *testing.T) {
	t.Parallel()
	p := ZeroEmbeddingPair(8)
	assert.Len(t, p.Experience, 8)
	assert.Len(t, p.Skills, 8)
}
