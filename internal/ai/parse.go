package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CleanJSON strips surrounding whitespace and a Markdown code fence.
func CleanJSON(text string) string {
	clean := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(clean, "```json"):
		clean = strings.TrimPrefix(clean, "```json")
	case strings.HasPrefix(clean, "```"):
		clean = strings.TrimPrefix(clean, "```")
	default:
		return clean
	}
	clean = strings.TrimSpace(clean)
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// decodeResponse cleans text and decodes it into v.
func decodeResponse(text string, v any) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyResponse
	}
	clean := CleanJSON(text)
	if clean == "" || clean == "null" {
		return fmt.Errorf("%w: no JSON value", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(clean), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
