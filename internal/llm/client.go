package llm

import (
	"context"
)

// LLMClient is the only capability the extractor needs from a model.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
