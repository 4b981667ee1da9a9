package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

const clientCacheSize = 4

// GeminiModel calls the Gemini API. One genai client is kept per API key.
type GeminiModel struct {
	model   string
	logger  *slog.Logger
	clients *lru.Cache[string, *genai.Client]
	mu      sync.Mutex
}

// NewGeminiModel creates a Gemini backed Model.
func NewGeminiModel(model string, logger *slog.Logger) (*GeminiModel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = DefaultModelName
	}
	cache, err := lru.New[string, *genai.Client](clientCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create client cache: %w", err)
	}
	return &GeminiModel{model: model, logger: logger, clients: cache}, nil
}

// Name returns the configured model name.
func (g *GeminiModel) Name() string { return g.model }

// Generate sends the prompt to Gemini and returns the text of the first candidate.
func (g *GeminiModel) Generate(ctx context.Context, apiKey string, req Request) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", ErrMissingCredential
	}
	cli, err := g.client(ctx, apiKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}

	cfg := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	g.logger.Debug("Sending AI request", "operation", req.Operation, "model", g.model, "prompt_bytes", len(req.Prompt))
	resp, err := cli.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		g.logger.Warn("AI request failed", "operation", req.Operation, "model", g.model, "error", err)
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	g.logger.Debug("Received AI response", "operation", req.Operation, "response_bytes", sb.Len())
	return sb.String(), nil
}

func (g *GeminiModel) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	sum := sha256.Sum256([]byte(apiKey))
	key := hex.EncodeToString(sum[:])

	g.mu.Lock()
	defer g.mu.Unlock()

	if cli, ok := g.clients.Get(key); ok {
		return cli, nil
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g.clients.Add(key, cli)
	return cli, nil
}
