package extraction

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

//go:embed profile.schema.json
var profileSchemaJSON string

var profileSchema = mustCompileSchema(profileSchemaJSON)

func mustCompileSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("extraction: invalid profile schema: %v", err))
	}
	return schema
}

// ValidationError lists the schema violations of a model response.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is a single violation at a JSON path.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	parts := make([]string, 0, len(ve.Errors))
	for _, e := range ve.Errors {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

func (ve *ValidationError) Unwrap() error { return domain.ErrSchemaInvalid }

// parseProfile validates doc against the profile schema and decodes it.
// Unknown fields are ignored; dates are checked again by domain.Date.
func parseProfile(doc string) (domain.CandidateProfile, error) {
	res, err := profileSchema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return domain.CandidateProfile{}, fmt.Errorf("decode json: %w", err)
	}
	if !res.Valid() {
		ve := &ValidationError{}
		for _, re := range res.Errors() {
			ve.Errors = append(ve.Errors, FieldError{Field: re.Field(), Message: re.Description()})
		}
		return domain.CandidateProfile{}, ve
	}
	var p domain.CandidateProfile
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return domain.CandidateProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

// SchemaJSON returns the profile JSON schema given to the model.
func SchemaJSON() string { return profileSchemaJSON }
