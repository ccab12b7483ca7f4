package domain

// CandidateRepository persists candidate records.
type CandidateRepository interface {
	Create(ctx Context, c Candidate) (string, error)
	Get(ctx Context, id string) (Candidate, error)
	// List returns candidates ordered by creation time.
	List(ctx Context, offset, limit int) ([]Candidate, error)
	// ListByIDs returns the candidates found, in the order of ids.
	ListByIDs(ctx Context, ids []string) ([]Candidate, error)
	Update(ctx Context, c Candidate) error
	Delete(ctx Context, id string) error
}

// CandidateIndex resolves structured filters to candidate ids.
type CandidateIndex interface {
	AllCandidateIDs(ctx Context) ([]string, error)
	// CandidateIDsWithSkills returns candidates having every skill (case-insensitive).
	CandidateIDsWithSkills(ctx Context, skills []string) ([]string, error)
	// CandidateIDsByLocation matches a case-insensitive substring of the location.
	CandidateIDsByLocation(ctx Context, substr string) ([]string, error)
	EducationDegrees(ctx Context) ([]DegreeRecord, error)
	WorkPeriods(ctx Context) ([]WorkPeriod, error)
	DistinctSkills(ctx Context, limit int) ([]string, error)
	DistinctLocations(ctx Context, limit int) ([]string, error)
}

// VectorStore holds the embedding pair of each candidate.
type VectorStore interface {
	UpsertEmbeddings(ctx Context, candidateID string, pair EmbeddingPair) error
	// FetchEmbeddings returns the pairs found; missing ids are absent from the map.
	FetchEmbeddings(ctx Context, ids []string) (map[string]EmbeddingPair, error)
	DeleteEmbeddings(ctx Context, candidateID string) error
}

// IngestJobRepository persists asynchronous ingestion jobs.
type IngestJobRepository interface {
	Create(ctx Context, j IngestJob) (string, error)
	UpdateStatus(ctx Context, id string, status IngestStatus, candidateID string, errMsg *string) error
	Get(ctx Context, id string) (IngestJob, error)
}

// Queue (port)

type Queue interface {
	EnqueueIngest(ctx Context, payload IngestTaskPayload) (string, error)
}

// AIClient (port)

type AIClient interface {
	// Embed returns one embedding vector per input text.
	Embed(ctx Context, texts []string) ([][]float32, error)
	// ChatJSON runs a single-turn completion expected to return a JSON document.
	ChatJSON(ctx Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// TextExtractor (port)
// ExtractPath extracts text from a file at path with provided original filename.
// Implementations may call external services (e.g., Tika) or use local libraries.
type TextExtractor interface {
	ExtractPath(ctx Context, fileName, path string) (string, error)
}
