package extraction

import (
	"slices"
	"strings"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

// Merge combines per-chunk profiles, in chunk order, into one profile.
//
// The first profile seeds the result unchanged. Entries of later profiles are
// appended unless an entry with the same identifying fields already exists;
// matching is exact. Skills are unioned case-insensitively in first-seen
// order. Each identity field takes the first value across all profiles that
// is not a placeholder, falling back to the first profile's value.
func Merge(profiles []domain.CandidateProfile) (domain.CandidateProfile, error) {
	if len(profiles) == 0 {
		return domain.CandidateProfile{}, &domain.EmptyMergeError{}
	}

	out := cloneProfile(profiles[0])
	if len(profiles) == 1 {
		return out, nil
	}

	eduSeen := keySet(out.Education, educationKey)
	workSeen := keySet(out.WorkExperience, workKey)
	projSeen := keySet(out.Projects, projectKey)
	certSeen := keySet(out.Certifications, certificationKey)

	for _, p := range profiles[1:] {
		out.Education = appendUnseen(out.Education, p.Education, eduSeen, educationKey)
		out.WorkExperience = appendUnseen(out.WorkExperience, p.WorkExperience, workSeen, workKey)
		out.Projects = appendUnseen(out.Projects, p.Projects, projSeen, projectKey)
		out.Certifications = appendUnseen(out.Certifications, p.Certifications, certSeen, certificationKey)
		out.Skills = domain.UnionSkills(out.Skills, p.Skills)
	}

	out.FullName = firstReal(profiles, func(p domain.CandidateProfile) string { return p.FullName }, domain.PlaceholderFullName)
	out.Email = firstReal(profiles, func(p domain.CandidateProfile) string { return p.Email }, domain.PlaceholderEmail)
	out.Phone = firstReal(profiles, func(p domain.CandidateProfile) string { return p.Phone }, domain.PlaceholderPhone)
	out.Location = firstReal(profiles, func(p domain.CandidateProfile) string { return p.Location }, domain.PlaceholderLocation)
	return out, nil
}

// IsPlaceholder reports whether v carries no information for a field whose
// documented placeholder is placeholder.
func IsPlaceholder(v, placeholder string) bool {
	v = strings.TrimSpace(v)
	return v == "" || (placeholder != "" && strings.EqualFold(v, placeholder))
}

func firstReal(profiles []domain.CandidateProfile, get func(domain.CandidateProfile) string, placeholder string) string {
	for _, p := range profiles {
		if v := get(p); !IsPlaceholder(v, placeholder) {
			return v
		}
	}
	return get(profiles[0])
}

func keySet[T any](items []T, key func(T) string) map[string]struct{} {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[key(it)] = struct{}{}
	}
	return seen
}

func appendUnseen[T any](dst, src []T, seen map[string]struct{}, key func(T) string) []T {
	for _, it := range src {
		k := key(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		dst = append(dst, it)
	}
	return dst
}

func joinKey(parts ...string) string { return strings.Join(parts, "\x1f") }

func dateKey(d *domain.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func educationKey(e domain.EducationRecord) string {
	return joinKey(e.Institution, e.Degree, e.FieldOfStudy, e.StartDate.String(), dateKey(e.EndDate))
}

func workKey(w domain.WorkExperienceRecord) string {
	return joinKey(w.Company, w.Position, w.StartDate.String(), dateKey(w.EndDate))
}

func projectKey(p domain.ProjectRecord) string { return p.Name }

func certificationKey(c domain.CertificationRecord) string {
	return joinKey(c.Name, c.Issuer, c.IssueDate.String())
}

func cloneProfile(p domain.CandidateProfile) domain.CandidateProfile {
	p.Education = slices.Clone(p.Education)
	p.WorkExperience = slices.Clone(p.WorkExperience)
	p.Skills = slices.Clone(p.Skills)
	p.Projects = slices.Clone(p.Projects)
	p.Certifications = slices.Clone(p.Certifications)
	return p
}
