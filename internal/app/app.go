// Package app assembles the planner and its dependencies from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/journey-mapper/internal/ai"
	"github.com/ashureev/journey-mapper/internal/config"
	"github.com/ashureev/journey-mapper/internal/planner"
	"github.com/ashureev/journey-mapper/internal/store"
)

// App holds the wired planner and the repository backing it.
type App struct {
	Repo    store.Repository
	Planner *planner.Planner
	Model   *ai.GeminiModel
}

// OpenRepository returns the sqlite store at cfg.DBPath, or an in-memory
// store when the path is empty.
func OpenRepository(cfg *config.Config, logger *slog.Logger) (store.Repository, error) {
	if cfg.DBPath == "" {
		logger.Warn("DB_PATH is empty, state will not survive restarts")
		return store.NewMemory(), nil
	}
	repo, err := store.NewSQLite(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return repo, nil
}

// New opens storage, builds the Gemini adapter and loads the planner state.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	repo, err := OpenRepository(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := repo.Ping(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("database health check: %w", err)
	}

	model, err := ai.NewGeminiModel(cfg.AI.Model, logger)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	p := planner.New(repo, ai.NewService(model, logger),
		planner.WithLogger(logger),
		planner.WithDefaultCredential(cfg.AI.APIKey),
	)
	if err := p.Load(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return &App{Repo: repo, Planner: p, Model: model}, nil
}

// Close releases the repository.
func (a *App) Close() error {
	return a.Repo.Close()
}
