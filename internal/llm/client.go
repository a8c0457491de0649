package llm

import (
	"context"
)

// Client generates a completion for a prompt. Every engine call expects a
// JSON object in the response text; providers that support a native JSON
// response mode enable it.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
