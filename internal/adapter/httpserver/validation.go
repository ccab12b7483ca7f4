package httpserver

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New(validator.WithRequiredStructEnabled()) })
	return vld
}

// searchRequest carries the query-string parameters of both search modes.
type searchRequest struct {
	Q                  string   `validate:"max=2000"`
	MinExperienceYears *float64 `validate:"omitempty,gte=0,lte=80"`
	Skills             []string `validate:"max=50,dive,min=1,max=100"`
	Location           string   `validate:"max=200"`
	EducationLevel     string   `validate:"max=50"`
	Limit              int      `validate:"gte=0,lte=100"`
	Offset             int      `validate:"gte=0,lte=100000"`
}

type pageRequest struct {
	Limit  int `validate:"gte=0,lte=100"`
	Offset int `validate:"gte=0"`
}

type listingRequest struct {
	Limit int `validate:"gte=0,lte=1000"`
}

// validationDetails flattens validator errors into field -> tag.
func validationDetails(err error) map[string]string {
	out := map[string]string{}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[toSnake(fe.Field())] = fe.Tag()
		}
	}
	return out
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// paramError records the first malformed query parameter.
type paramError struct {
	field string
	err   error
}

type queryParser struct {
	q     url.Values
	first *paramError
}

func (p *queryParser) int(name string) int {
	raw := strings.TrimSpace(p.q.Get(name))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil && p.first == nil {
		p.first = &paramError{field: name, err: err}
	}
	return n
}

func (p *queryParser) float(name string) *float64 {
	raw := strings.TrimSpace(p.q.Get(name))
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		if p.first == nil {
			p.first = &paramError{field: name, err: err}
		}
		return nil
	}
	return &f
}

// list accepts both repeated parameters and comma separated values.
func (p *queryParser) list(name string) []string {
	var out []string
	for _, v := range p.q[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (p *queryParser) err() error {
	if p.first == nil {
		return nil
	}
	return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidArgument, p.first.field)
}

func (p *queryParser) details() map[string]string {
	if p.first == nil {
		return nil
	}
	return map[string]string{p.first.field: "number"}
}

// parseSearch reads and validates search parameters into a domain query.
func parseSearch(q url.Values) (domain.SearchQuery, map[string]string, error) {
	p := &queryParser{q: q}
	req := searchRequest{
		Q:                  strings.TrimSpace(q.Get("q")),
		MinExperienceYears: p.float("min_experience_years"),
		Skills:             p.list("skills"),
		Location:           strings.TrimSpace(q.Get("location")),
		EducationLevel:     strings.TrimSpace(q.Get("education_level")),
		Limit:              p.int("limit"),
		Offset:             p.int("offset"),
	}
	if err := p.err(); err != nil {
		return domain.SearchQuery{}, p.details(), err
	}
	if err := getValidator().Struct(req); err != nil {
		return domain.SearchQuery{}, validationDetails(err), fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument)
	}
	filters := domain.SearchFilters{
		MinExperienceYears: req.MinExperienceYears,
		RequiredSkills:     req.Skills,
		Location:           req.Location,
		EducationLevel:     domain.EducationLevel(req.EducationLevel),
	}
	return domain.NewSearchQuery(req.Q, filters, req.Limit, req.Offset), nil, nil
}

func parsePage(q url.Values) (pageRequest, map[string]string, error) {
	p := &queryParser{q: q}
	req := pageRequest{Limit: p.int("limit"), Offset: p.int("offset")}
	if err := p.err(); err != nil {
		return req, p.details(), err
	}
	if err := getValidator().Struct(req); err != nil {
		return req, validationDetails(err), fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument)
	}
	return req, nil, nil
}

func parseListing(q url.Values) (int, map[string]string, error) {
	p := &queryParser{q: q}
	req := listingRequest{Limit: p.int("limit")}
	if err := p.err(); err != nil {
		return 0, p.details(), err
	}
	if err := getValidator().Struct(req); err != nil {
		return 0, validationDetails(err), fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument)
	}
	return req.Limit, nil, nil
}

// profileRequest is the body of PUT /v1/candidates/{id}.
type profileRequest struct {
	FullName       string                        `json:"full_name" validate:"required,max=200"`
	Email          string                        `json:"email" validate:"required,max=320"`
	Phone          string                        `json:"phone" validate:"required,max=64"`
	Location       string                        `json:"location" validate:"required,max=200"`
	Education      []domain.EducationRecord      `json:"education" validate:"max=50"`
	WorkExperience []domain.WorkExperienceRecord `json:"work_experience" validate:"max=100"`
	Skills         []string                      `json:"skills" validate:"max=500,dive,required,max=100"`
	Projects       []domain.ProjectRecord        `json:"projects" validate:"max=100"`
	Certifications []domain.CertificationRecord  `json:"certifications" validate:"max=100"`
}

func (p profileRequest) toProfile() domain.CandidateProfile {
	return domain.CandidateProfile{
		FullName:       strings.TrimSpace(p.FullName),
		Email:          strings.TrimSpace(p.Email),
		Phone:          strings.TrimSpace(p.Phone),
		Location:       strings.TrimSpace(p.Location),
		Education:      nonNil(p.Education),
		WorkExperience: nonNil(p.WorkExperience),
		Skills:         nonNil(p.Skills),
		Projects:       nonNil(p.Projects),
		Certifications: nonNil(p.Certifications),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
