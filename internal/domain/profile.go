package domain

import "strings"

// Normalized returns p with the profile invariants applied: identity fields
// trimmed and never empty, collections never nil, required record fields
// filled with their placeholders and skills unique under case-insensitive
// comparison (first spelling wins). p itself is not modified.
func (p CandidateProfile) Normalized() CandidateProfile {
	p.FullName = orPlaceholder(p.FullName, PlaceholderFullName)
	p.Email = orPlaceholder(p.Email, PlaceholderEmail)
	p.Phone = orPlaceholder(p.Phone, PlaceholderPhone)
	p.Location = orPlaceholder(p.Location, PlaceholderLocation)

	p.Education = append(make([]EducationRecord, 0, len(p.Education)), p.Education...)
	p.WorkExperience = append(make([]WorkExperienceRecord, 0, len(p.WorkExperience)), p.WorkExperience...)
	for i := range p.WorkExperience {
		w := &p.WorkExperience[i]
		w.Company = orPlaceholder(w.Company, PlaceholderCompany)
		w.Position = orPlaceholder(w.Position, PlaceholderPosition)
	}
	p.Projects = append(make([]ProjectRecord, 0, len(p.Projects)), p.Projects...)
	p.Certifications = append(make([]CertificationRecord, 0, len(p.Certifications)), p.Certifications...)
	for i := range p.Certifications {
		p.Certifications[i].Issuer = orPlaceholder(p.Certifications[i].Issuer, PlaceholderIssuer)
	}
	p.Skills = UnionSkills(make([]string, 0, len(p.Skills)), p.Skills)
	return p
}

// UnionSkills appends to dst every skill of src not already present,
// comparing trimmed values case-insensitively. Blank skills are dropped.
func UnionSkills(dst, src []string) []string {
	seen := make(map[string]struct{}, len(dst)+len(src))
	for _, s := range dst {
		seen[SkillKey(s)] = struct{}{}
	}
	for _, s := range src {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := SkillKey(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		dst = append(dst, s)
	}
	return dst
}

// SkillKey is the comparison key of a skill.
func SkillKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func orPlaceholder(v, placeholder string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return placeholder
	}
	return v
}
