package extraction

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencePattern         = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
	trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)
)

// cleanJSONResponse strips the wrapping models commonly put around a JSON
// object: markdown fences, leading or trailing prose, trailing commas.
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)
	if m := fencePattern.FindStringSubmatch(response); m != nil {
		response = m[1]
	}
	response = extractJSONObject(response)
	if !json.Valid([]byte(response)) {
		response = trailingCommaPattern.ReplaceAllString(response, "$1")
	}
	return response
}

// extractJSONObject returns the first balanced {...} in s, skipping braces
// inside string literals. s is returned unchanged when no object starts.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return s
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	// unbalanced: hand back the tail so the parser reports a useful error
	return s[start:]
}
