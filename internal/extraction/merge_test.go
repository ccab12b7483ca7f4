package extraction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

func sampleProfile() domain.CandidateProfile {
	end := domain.NewDate(2019, time.June, 30)
	return domain.CandidateProfile{
		FullName: "Jane Doe",
		Email:    "jane@example.org",
		Phone:    "+1 555 0100",
		Location: "Berlin",
		Education: []domain.EducationRecord{
			{Institution: "TU Berlin", Degree: "BSc", FieldOfStudy: "CS", StartDate: domain.NewDate(2012, time.October, 1)},
		},
		WorkExperience: []domain.WorkExperienceRecord{
			{Company: "Acme Corp", Position: "Engineer", StartDate: domain.NewDate(2016, time.January, 1), EndDate: &end, Description: "Go"},
		},
		Skills:         []string{"Go", "Python"},
		Projects:       []domain.ProjectRecord{{Name: "cvsearch", Description: "search"}},
		Certifications: []domain.CertificationRecord{{Name: "CKA", Issuer: "CNCF", IssueDate: domain.NewDate(2021, time.May, 1)}},
	}
}

func TestMerge_Empty(t *testing.T) {
	t.Parallel()
	_, err := Merge(nil)
	var me *domain.EmptyMergeError
	require.ErrorAs(t, err, &me)
	assert.ErrorIs(t, err, domain.ErrInternal)
}

func TestMerge_Identity(t *testing.T) {
	t.Parallel()
	p := sampleProfile()
	got, err := Merge([]domain.CandidateProfile{p})
	require.NoError(t, err)
	assert.Equal(t, p, got)

	empty := domain.CandidateProfile{FullName: "X"}
	got, err = Merge([]domain.CandidateProfile{empty})
	require.NoError(t, err)
	assert.Equal(t, empty, got)
}

func TestMerge_IdempotentOnSelf(t *testing.T) {
	t.Parallel()
	p := sampleProfile()
	got, err := Merge([]domain.CandidateProfile{p, p})
	require.NoError(t, err)
	assert.Equal(t, p.Skills, got.Skills)
	assert.Equal(t, p.Education, got.Education)
	assert.Equal(t, p.WorkExperience, got.WorkExperience)
	assert.Equal(t, p.Projects, got.Projects)
	assert.Equal(t, p.Certifications, got.Certifications)
}

func TestMerge_DoesNotAliasInput(t *testing.T) {
	t.Parallel()
	first := sampleProfile()
	second := sampleProfile()
	second.Skills = []string{"Rust"}
	got, err := Merge([]domain.CandidateProfile{first, second})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Python", "Rust"}, got.Skills)
	assert.Equal(t, []string{"Go", "Python"}, first.Skills)
}

func TestMerge_AppendsDistinctEntries(t *testing.T) {
	t.Parallel()
	a := sampleProfile()
	b := sampleProfile()
	b.WorkExperience = append(b.WorkExperience, domain.WorkExperienceRecord{
		Company: "Globex", Position: "Lead", StartDate: domain.NewDate(2019, time.July, 1), Description: "Teams",
	})
	// same company and role but different dates is a different entry
	b.WorkExperience = append(b.WorkExperience, domain.WorkExperienceRecord{
		Company: "Acme Corp", Position: "Engineer", StartDate: domain.NewDate(2014, time.January, 1), Description: "Earlier stint",
	})
	// description differences do not make a new entry
	b.WorkExperience[0].Description = "Reworded"
	b.Skills = []string{"GO", "python", "Kubernetes"}
	b.Certifications = append(b.Certifications, domain.CertificationRecord{Name: "CKA", Issuer: "CNCF", IssueDate: domain.NewDate(2024, time.May, 1)})

	got, err := Merge([]domain.CandidateProfile{a, b})
	require.NoError(t, err)
	require.Len(t, got.WorkExperience, 3)
	assert.Equal(t, "Go", got.WorkExperience[0].Description)
	assert.Equal(t, "Globex", got.WorkExperience[1].Company)
	assert.Equal(t, []string{"Go", "Python", "Kubernetes"}, got.Skills)
	assert.Len(t, got.Certifications, 2)
	assert.Len(t, got.Projects, 1)
	assert.Len(t, got.Education, 1)
}

func TestMerge_IdentityFromFirstNonPlaceholder(t *testing.T) {
	t.Parallel()
	first := domain.CandidateProfile{FullName: "", Email: domain.PlaceholderEmail, Phone: "+49 1", Location: "unknown location"}
	second := domain.CandidateProfile{FullName: "Jane Doe", Email: "jane@example.org", Phone: "+49 2", Location: "Munich"}
	third := domain.CandidateProfile{FullName: "J. Doe", Email: "other@example.org", Phone: "+49 3", Location: "Hamburg"}

	got, err := Merge([]domain.CandidateProfile{first, second, third})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.FullName)
	assert.Equal(t, "jane@example.org", got.Email)
	assert.Equal(t, "+49 1", got.Phone)
	assert.Equal(t, "Munich", got.Location)
}

func TestMerge_AllPlaceholdersKeepFirst(t *testing.T) {
	t.Parallel()
	a := domain.CandidateProfile{Email: domain.PlaceholderEmail, Location: domain.PlaceholderLocation}
	b := domain.CandidateProfile{Email: "UNKNOWN@example.com", Location: ""}
	got, err := Merge([]domain.CandidateProfile{a, b})
	require.NoError(t, err)
	assert.Equal(t, domain.PlaceholderEmail, got.Email)
	assert.Equal(t, domain.PlaceholderLocation, got.Location)
}

func TestIsPlaceholder(t *testing.T) {
	t.Parallel()
	assert.True(t, IsPlaceholder("  ", domain.PlaceholderPhone))
	assert.True(t, IsPlaceholder("000-000-0000", domain.PlaceholderPhone))
	assert.False(t, IsPlaceholder("+1 555", domain.PlaceholderPhone))
	assert.False(t, IsPlaceholder("Jane", ""))
}
