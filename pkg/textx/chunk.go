package textx

import (
	"errors"
	"fmt"
	"unicode"
)

// Default chunking parameters, measured in characters (runes).
const (
	DefaultChunkMaxLength = 4000
	DefaultChunkOverlap   = 200
)

var (
	// ErrEmptyText is returned when there is nothing to chunk.
	ErrEmptyText = errors.New("text is empty")
	// ErrInvalidChunkSize is returned for a non-positive max length or an overlap outside [0, max).
	ErrInvalidChunkSize = errors.New("invalid chunk size")
)

// boundary reports whether a separator ends at w[i].
type boundary func(w []rune, i int) bool

// boundaries in priority order: paragraph, line, sentence, clause, word.
var boundaries = []boundary{
	func(w []rune, i int) bool { return i > 0 && w[i] == '\n' && w[i-1] == '\n' },
	func(w []rune, i int) bool { return w[i] == '\n' },
	func(w []rune, i int) bool { return w[i] == '.' || w[i] == '!' || w[i] == '?' },
	func(w []rune, i int) bool { return w[i] == ',' || w[i] == ';' },
	func(w []rune, i int) bool { return unicode.IsSpace(w[i]) },
}

// Chunk splits text into segments of at most maxLength runes. Consecutive
// segments share exactly overlap runes, so dropping the first overlap runes
// of every segment after the first and concatenating reproduces text.
func Chunk(text string, maxLength, overlap int) ([]string, error) {
	if maxLength <= 0 {
		return nil, fmt.Errorf("%w: max length %d", ErrInvalidChunkSize, maxLength)
	}
	if overlap < 0 || overlap >= maxLength {
		return nil, fmt.Errorf("%w: overlap %d with max length %d", ErrInvalidChunkSize, overlap, maxLength)
	}
	if text == "" {
		return nil, ErrEmptyText
	}

	runes := []rune(text)
	if len(runes) <= maxLength {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for {
		if len(runes)-start <= maxLength {
			chunks = append(chunks, string(runes[start:]))
			return chunks, nil
		}
		end := start + cutPoint(runes[start:start+maxLength], overlap)
		chunks = append(chunks, string(runes[start:end]))
		start = end - overlap
	}
}

// cutPoint returns the length of the next chunk within window. The cut lands
// just after the last separator of the highest priority that still leaves more
// than overlap runes, so every step makes progress. Without one it cuts hard.
func cutPoint(window []rune, overlap int) int {
	minCut := overlap + 1
	for _, isBoundary := range boundaries {
		for i := len(window) - 1; i+1 >= minCut; i-- {
			if isBoundary(window, i) {
				return i + 1
			}
		}
	}
	return len(window)
}
