// Package cli implements the journeyctl command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashureev/journey-mapper/internal/app"
	"github.com/ashureev/journey-mapper/internal/config"
	"github.com/ashureev/journey-mapper/internal/planner"
)

// Session is an opened planner plus the function releasing its storage.
type Session struct {
	Planner   *planner.Planner
	Close     func() error
	AITimeout time.Duration
}

// Opener opens the planner a command operates on.
type Opener func(ctx context.Context) (*Session, error)

// Execute runs the command tree against the configured store.
func Execute() error {
	return NewRoot(openFromEnv).Execute()
}

func openFromEnv(ctx context.Context) (*Session, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Session{Planner: a.Planner, Close: a.Close, AITimeout: cfg.AI.Timeout}, nil
}

// NewRoot builds the command tree; open is called once per command.
func NewRoot(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "journeyctl",
		Short:         "Plan and refine customer journeys from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		ShowCmd(open),
		ExportCmd(open),
		ImportCmd(open),
		GenerateCmd(open),
		SuggestCmd(open),
		OptimizeCmd(open),
		SetKeyCmd(open),
		BusinessCmd(open),
		PersonaCmd(open),
		MoveCmd(open),
	)
	return root
}

// withSession opens a session, runs fn and closes the session.
func withSession(cmd *cobra.Command, open Opener, fn func(s *Session) error) error {
	s, err := open(cmd.Context())
	if err != nil {
		return fmt.Errorf("open planner: %w", err)
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			slog.Warn("Failed to close store", "error", closeErr)
		}
	}()
	return fn(s)
}
