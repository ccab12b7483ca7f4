package extraction

import (
	"encoding/json"
)

// Required string fields per level of the profile document.
var (
	requiredRootStrings = []string{"full_name", "email", "phone", "location"}
	requiredListStrings = map[string][]string{
		"education":       {"institution", "degree", "field_of_study"},
		"work_experience": {"company", "position", "description"},
		"projects":        {"name", "description"},
		"certifications":  {"name", "issuer"},
	}
)

// repairResponse is the single normalization pass applied after a failed
// parse. It cleans the response text, then sets required string fields that
// are null or missing to "" and null collections to []. Anything it cannot
// decode is returned cleaned but otherwise untouched.
func repairResponse(raw string) string {
	cleaned := cleanJSONResponse(raw)

	var doc map[string]any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return cleaned
	}

	coerceStrings(doc, requiredRootStrings)
	if v, ok := doc["skills"]; ok && v == nil {
		doc["skills"] = []any{}
	}
	for list, fields := range requiredListStrings {
		v, ok := doc[list]
		if !ok {
			continue
		}
		if v == nil {
			doc[list] = []any{}
			continue
		}
		items, ok := v.([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			if obj, ok := item.(map[string]any); ok {
				coerceStrings(obj, fields)
			}
		}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return cleaned
	}
	return string(out)
}

func coerceStrings(obj map[string]any, fields []string) {
	for _, f := range fields {
		if v, ok := obj[f]; !ok || v == nil {
			obj[f] = ""
		}
	}
}
