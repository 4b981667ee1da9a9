package ai

import (
	"context"
	"errors"
)

var (
	// ErrMissingCredential is returned when no API key has been supplied.
	ErrMissingCredential = errors.New("ai: API key is required")
	// ErrTransport wraps failures of the call to the AI provider.
	ErrTransport = errors.New("ai: request failed")
	// ErrEmptyResponse is returned when the provider answered without text.
	ErrEmptyResponse = errors.New("ai: empty response")
	// ErrMalformedResponse is returned when the response text is not JSON of the expected shape.
	ErrMalformedResponse = errors.New("ai: malformed response")
)

// Request is a single prompt sent to the model.
type Request struct {
	// Operation names the calling operation for logs.
	Operation string
	Prompt    string
	// Temperature overrides the provider default when set.
	Temperature *float32
	// JSON asks the provider for an application/json response.
	JSON bool
}

// Model defines the text generation backend used by Service.
type Model interface {
	// Generate sends req using apiKey and returns the raw response text.
	Generate(ctx context.Context, apiKey string, req Request) (string, error)
}

// Ensure GeminiModel implements Model.
var _ Model = (*GeminiModel)(nil)

func temperature(v float32) *float32 { return &v }
