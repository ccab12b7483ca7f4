package extraction

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

// buildSystemPrompt renders the fixed instruction contract sent with every chunk.
func buildSystemPrompt(currentYear int) string {
	var b strings.Builder
	b.WriteString(`You are an expert CV parser. Convert the unstructured CV text you receive into a single JSON object that strictly follows the schema below.

Rules:
1. Never omit a required field and never return null for one. Use the placeholders listed here when the text does not contain the value.
2. Infer values that are clearly implied by the text, but do not invent facts.
3. Return only the JSON object. No markdown, no commentary.

Root fields (required):
`)
	fmt.Fprintf(&b, "- full_name: string, use %q if missing\n", domain.PlaceholderFullName)
	fmt.Fprintf(&b, "- email: string, use %q if missing\n", domain.PlaceholderEmail)
	fmt.Fprintf(&b, "- phone: string, use %q if missing\n", domain.PlaceholderPhone)
	fmt.Fprintf(&b, "- location: string, city and country preferred, use %q if missing\n", domain.PlaceholderLocation)
	b.WriteString(`
education (array). Each entry:
- institution, degree, field_of_study: strings (required)
- start_date: date (required)
- end_date: date or null if ongoing
- description: string or null

work_experience (array). Each entry:
`)
	fmt.Fprintf(&b, "- company: string, use %q if unknown\n", domain.PlaceholderCompany)
	fmt.Fprintf(&b, "- position: string, use %q if missing\n", domain.PlaceholderPosition)
	b.WriteString(`- start_date: date (required)
- end_date: date or null for the current role
- description: string (required), summarize the key responsibilities
- achievements: array of strings or null
- location: string or null

skills (array of strings): technical and soft skills, including those named in projects and work descriptions.

projects (array). Each entry:
- name, description: strings (required)
- start_date, end_date: date or null
- technologies: array of strings or null
- url: string or null

certifications (array). Each entry:
- name: string (required)
`)
	fmt.Fprintf(&b, "- issuer: string, use %q if missing\n", domain.PlaceholderIssuer)
	b.WriteString(`- issue_date: date (required)
- expiry_date: date or null
- credential_id, credential_url: string or null

Dates:
- Always YYYY-MM-DD.
- Use 01 for an unknown month or day, e.g. "2015-01-01" when only the year is known.
- A range such as "2015-2017" becomes "2015-01-01" to "2017-01-01".
- Present or current roles have end_date null.

JSON schema:
`)
	b.WriteString(SchemaJSON())
	fmt.Fprintf(&b, "\nCurrent year: %d\n", currentYear)
	return b.String()
}

// buildUserPrompt wraps one chunk of CV text.
func buildUserPrompt(chunk string) string {
	return "Here is the CV text to analyze:\n\n" + chunk +
		"\n\nExtract the information in the specified format. Never return null for required fields. " +
		"Make reasonable inferences when information is not stated explicitly."
}
