package core

import (
	"strings"

	"github.com/google/uuid"
)

// GenerationResult is the structured outcome of one successful rewrite.
// It is never mutated after construction; the orchestrator replaces the whole
// value on the next successful call.
type GenerationResult struct {
	ID             string
	Style          Style
	Audience       Audience
	Text           string
	FormalityScore int
	WordCount      int
}

// NewGenerationResult builds a result from the engine's text. WordCount is
// always recomputed locally, never taken from the engine.
func NewGenerationResult(rc RequestContext, text string, formality int) *GenerationResult {
	return &GenerationResult{
		ID:             uuid.NewString(),
		Style:          rc.Style,
		Audience:       rc.Audience,
		Text:           text,
		FormalityScore: clampFormality(formality),
		WordCount:      CountWords(text),
	}
}

// CountWords counts whitespace-delimited tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

func clampFormality(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}
