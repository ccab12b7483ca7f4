package extraction

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/fairyhunter13/ai-cv-search/internal/domain"
)

// fakeAI answers ChatJSON through respond and records every user prompt.
type fakeAI struct {
	mu      sync.Mutex
	prompts []string
	respond func(ctx context.Context, userPrompt string) (string, error)
}

func (f *fakeAI) Embed(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

func (f *fakeAI) ChatJSON(ctx context.Context, _ string, userPrompt string, _ int) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, userPrompt)
	f.mu.Unlock()
	return f.respond(ctx, userPrompt)
}

func (f *fakeAI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func staticAI(resp string) *fakeAI {
	return &fakeAI{respond: func(context.Context, string) (string, error) { return resp, nil }}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func chunkOf(userPrompt string) string {
	s := strings.TrimPrefix(userPrompt, "Here is the CV text to analyze:\n\n")
	if i := strings.Index(s, "\n\nExtract the information"); i >= 0 {
		s = s[:i]
	}
	return s
}

var _ domain.AIClient = (*fakeAI)(nil)

const acmeProfileJSON = `{
  "full_name": "Jane Doe",
  "email": "jane@example.org",
  "phone": "+1 555 0100",
  "location": "Berlin, Germany",
  "education": [
    {"institution": "TU Berlin", "degree": "BSc Computer Science", "field_of_study": "Computer Science", "start_date": "2012-10-01", "end_date": "2015-09-30", "description": null}
  ],
  "work_experience": [
    {"company": "Acme Corp", "position": "Engineer", "start_date": "2016-01-01", "end_date": null, "description": "Built Go services", "achievements": null, "location": null}
  ],
  "skills": ["Go", "PostgreSQL", "go"],
  "projects": [],
  "certifications": []
}`
