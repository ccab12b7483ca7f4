package search

import (
	"strings"
	"unicode"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

// educationLevels is the ordinal hierarchy, lowest first.
var educationLevels = []domain.EducationLevel{
	domain.EducationHighSchool,
	domain.EducationBachelor,
	domain.EducationMaster,
	domain.EducationPhD,
}

// educationKeywords per level. Multi-word entries match consecutive tokens,
// which also covers dotted abbreviations ("B.Sc." tokenizes to "b sc").
var educationKeywords = map[domain.EducationLevel][]string{
	domain.EducationHighSchool: {"high school", "secondary"},
	domain.EducationBachelor:   {"bachelor", "bachelors", "bsc", "b sc", "ba", "b a", "undergraduate"},
	domain.EducationMaster:     {"master", "masters", "msc", "m sc", "ma", "m a", "mba", "postgraduate", "graduate degree"},
	domain.EducationPhD:        {"phd", "ph d", "doctorate", "doctoral"},
}

// ParseEducationLevel accepts a level name case-insensitively, with spaces
// or hyphens in place of underscores.
func ParseEducationLevel(s string) (domain.EducationLevel, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for _, lvl := range educationLevels {
		if string(lvl) == norm {
			return lvl, nil
		}
	}
	return "", &domain.InvalidFilterValueError{Filter: "education_level", Value: s}
}

// keywordsAtOrAbove collects the keyword phrases, pre-tokenized, of level and
// every level above it.
func keywordsAtOrAbove(level domain.EducationLevel) [][]string {
	var out [][]string
	include := false
	for _, lvl := range educationLevels {
		if lvl == level {
			include = true
		}
		if !include {
			continue
		}
		for _, kw := range educationKeywords[lvl] {
			out = append(out, strings.Fields(kw))
		}
	}
	return out
}

// degreeMatches reports whether any keyword phrase occurs in degree on token
// boundaries, so "ma" does not match "diploma".
func degreeMatches(degree string, phrases [][]string) bool {
	tokens := tokenize(degree)
	for _, phrase := range phrases {
		if containsPhrase(tokens, phrase) {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 {
		return false
	}
outer:
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		for j, p := range phrase {
			if tokens[i+j] != p {
				continue outer
			}
		}
		return true
	}
	return false
}
