package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeminiModelDefaults(t *testing.T) {
	g, err := NewGeminiModel("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultModelName, g.Name())
}

func TestGeminiModelRequiresKey(t *testing.T) {
	g, err := NewGeminiModel("gemini-2.5-flash", nil)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "   ", Request{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Zero(t, g.clients.Len())
}
