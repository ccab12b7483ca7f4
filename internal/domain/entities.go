package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Placeholders the extractor is instructed to use when the source text lacks a value.
const (
	PlaceholderFullName = "Unknown Candidate"
	PlaceholderEmail    = "unknown@example.com"
	PlaceholderPhone    = "000-000-0000"
	PlaceholderLocation = "Unknown Location"
	PlaceholderCompany  = "Anonymous Corp"
	PlaceholderPosition = "Unknown Role"
	PlaceholderIssuer   = "Unknown Issuer"
)

// DateLayout is the ISO calendar date layout used on the wire and in storage.
const DateLayout = "2006-01-02"

// Date is a calendar date (no time of day). The zero value means "unknown".
type Date struct {
	time.Time
}

// NewDate builds a Date at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// String returns YYYY-MM-DD or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD"; null and "" leave the zero date.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML lets seed files carry dates as plain strings.
func (d Date) MarshalYAML() (any, error) { return d.String(), nil }

// UnmarshalYAML parses a YYYY-MM-DD scalar.
func (d *Date) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// EducationRecord is a single education entry. EndDate nil means ongoing.
type EducationRecord struct {
	Institution  string  `json:"institution" yaml:"institution"`
	Degree       string  `json:"degree" yaml:"degree"`
	FieldOfStudy string  `json:"field_of_study" yaml:"field_of_study"`
	StartDate    Date    `json:"start_date" yaml:"start_date"`
	EndDate      *Date   `json:"end_date" yaml:"end_date,omitempty"`
	Description  *string `json:"description,omitempty" yaml:"description,omitempty"`
}

// WorkExperienceRecord is a single position. EndDate nil means current role.
type WorkExperienceRecord struct {
	Company      string   `json:"company" yaml:"company"`
	Position     string   `json:"position" yaml:"position"`
	StartDate    Date     `json:"start_date" yaml:"start_date"`
	EndDate      *Date    `json:"end_date" yaml:"end_date,omitempty"`
	Description  string   `json:"description" yaml:"description"`
	Achievements []string `json:"achievements,omitempty" yaml:"achievements,omitempty"`
	Location     *string  `json:"location,omitempty" yaml:"location,omitempty"`
}

// ProjectRecord is a personal or professional project.
type ProjectRecord struct {
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	StartDate    *Date    `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate      *Date    `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Technologies []string `json:"technologies,omitempty" yaml:"technologies,omitempty"`
	URL          *string  `json:"url,omitempty" yaml:"url,omitempty"`
}

// CertificationRecord is a professional certification.
type CertificationRecord struct {
	Name          string  `json:"name" yaml:"name"`
	Issuer        string  `json:"issuer" yaml:"issuer"`
	IssueDate     Date    `json:"issue_date" yaml:"issue_date"`
	ExpiryDate    *Date   `json:"expiry_date,omitempty" yaml:"expiry_date,omitempty"`
	CredentialID  *string `json:"credential_id,omitempty" yaml:"credential_id,omitempty"`
	CredentialURL *string `json:"credential_url,omitempty" yaml:"credential_url,omitempty"`
}

// CandidateProfile is the structured record produced by extraction.
// Identity fields are never empty after extraction; placeholders stand in for missing data.
// Skills hold set semantics under case-insensitive comparison.
type CandidateProfile struct {
	FullName       string                 `json:"full_name" yaml:"full_name"`
	Email          string                 `json:"email" yaml:"email"`
	Phone          string                 `json:"phone" yaml:"phone"`
	Location       string                 `json:"location" yaml:"location"`
	Education      []EducationRecord      `json:"education" yaml:"education"`
	WorkExperience []WorkExperienceRecord `json:"work_experience" yaml:"work_experience"`
	Skills         []string               `json:"skills" yaml:"skills"`
	Projects       []ProjectRecord        `json:"projects" yaml:"projects"`
	Certifications []CertificationRecord  `json:"certifications" yaml:"certifications"`
}

// EmbeddingPair holds the two purpose-built vectors of a profile or query.
// Both vectors always share the same dimension.
type EmbeddingPair struct {
	Experience []float32 `json:"experience_embedding"`
	Skills     []float32 `json:"skills_embedding"`
}

// ZeroEmbeddingPair returns the fallback pair of dimension dim.
func ZeroEmbeddingPair(dim int) EmbeddingPair {
	return EmbeddingPair{Experience: make([]float32, dim), Skills: make([]float32, dim)}
}

// Candidate is a persisted profile plus metadata.
type Candidate struct {
	ID             string           `json:"id"`
	Profile        CandidateProfile `json:"profile"`
	SourceFilename string           `json:"source_filename,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// EducationLevel is the ordinal education hierarchy used by search filters.
type EducationLevel string

const (
	EducationHighSchool EducationLevel = "high_school"
	EducationBachelor   EducationLevel = "bachelor"
	EducationMaster     EducationLevel = "master"
	EducationPhD        EducationLevel = "phd"
)

// SearchFilters are the optional structured filters of a search. Zero values mean "absent".
type SearchFilters struct {
	MinExperienceYears *float64
	RequiredSkills     []string
	Location           string
	EducationLevel     EducationLevel
}

// Empty reports whether no filter is set.
func (f SearchFilters) Empty() bool {
	return f.MinExperienceYears == nil && len(f.RequiredSkills) == 0 &&
		strings.TrimSpace(f.Location) == "" && f.EducationLevel == ""
}

// Pagination defaults and bounds shared by search and listing.
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
)

// SearchQuery is passed by value; callers cannot mutate a query held by the engine.
type SearchQuery struct {
	Text    string
	Filters SearchFilters
	Limit   int
	Offset  int
}

// NewSearchQuery applies pagination defaults and copies the skills slice.
func NewSearchQuery(text string, filters SearchFilters, limit, offset int) SearchQuery {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	if offset < 0 {
		offset = 0
	}
	if filters.RequiredSkills != nil {
		filters.RequiredSkills = append([]string(nil), filters.RequiredSkills...)
	}
	return SearchQuery{Text: strings.TrimSpace(text), Filters: filters, Limit: limit, Offset: offset}
}

// SearchHit is a ranked candidate id.
type SearchHit struct {
	CandidateID string  `json:"candidate_id"`
	Score       float64 `json:"score"`
}

// DegreeRecord is a projection of an education entry used by the education filter.
type DegreeRecord struct {
	CandidateID string
	Degree      string
}

// WorkPeriod is a projection of a work entry used by the experience filter. End nil means ongoing.
type WorkPeriod struct {
	CandidateID string
	Start       Date
	End         *Date
}

// IngestStatus is the lifecycle of an asynchronous ingestion.
type IngestStatus string

const (
	IngestQueued     IngestStatus = "queued"
	IngestProcessing IngestStatus = "processing"
	IngestCompleted  IngestStatus = "completed"
	IngestFailed     IngestStatus = "failed"
)

// IngestJob tracks one asynchronous CV ingestion.
type IngestJob struct {
	ID          string       `json:"id"`
	Status      IngestStatus `json:"status"`
	Filename    string       `json:"filename"`
	CandidateID string       `json:"candidate_id,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IngestTaskPayload is the message published for asynchronous ingestion.
type IngestTaskPayload struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// Context is an alias so ports read uniformly across packages.
type Context = context.Context
