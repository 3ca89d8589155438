package port

import (
	"context"
	"encoding/json"
)

// Generator calls a text-completion endpoint.
type Generator interface {
	// Generate sends the prompt and returns the endpoint's response body unmodified.
	Generate(ctx context.Context, prompt string, nPredict int) (json.RawMessage, error)
}
