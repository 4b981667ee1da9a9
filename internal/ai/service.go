package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/journey-mapper/internal/domain"
)

// Service adapts model responses into journey map changes. It never modifies
// the maps it is given; on failure the caller keeps its current state.
type Service struct {
	model  Model
	logger *slog.Logger
}

// NewService creates a Service backed by model.
func NewService(model Model, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{model: model, logger: logger}
}

// GenerateJourney asks the model for a full journey and returns a replacement
// for current. Every stage of current is emptied; stages named in the
// response are filled, unknown stage names are dropped. A map without stages
// is replaced by the canonical layout.
func (s *Service) GenerateJourney(ctx context.Context, apiKey string, business domain.BusinessProfile, persona *domain.Persona, current domain.JourneyMap) (domain.JourneyMap, error) {
	if strings.TrimSpace(apiKey) == "" {
		return current, ErrMissingCredential
	}

	layout := current
	if layout.Len() == 0 {
		layout = domain.NewJourneyMap()
	}
	stages := layout.Stages()
	titles := make([]string, len(stages))
	for i, st := range stages {
		titles[i] = st.Title
	}

	text, err := s.model.Generate(ctx, apiKey, Request{
		Operation:   "generate_journey",
		Prompt:      buildJourneyPrompt(business, persona, titles),
		Temperature: temperature(0.4),
		JSON:        true,
	})
	if err != nil {
		return current, err
	}

	var records []stageRecord
	if err := decodeResponse(text, &records); err != nil {
		s.logger.Warn("Journey response rejected", "error", err)
		return current, err
	}

	next := layout.Cleared()
	for _, rec := range records {
		if rec.Stage == nil {
			continue
		}
		stageID := domain.Slug(*rec.Stage)
		if _, ok := next.Stage(stageID); !ok {
			s.logger.Debug("Dropping unknown stage from journey response", "stage", *rec.Stage)
			continue
		}
		next, err = next.ReplaceItems(stageID, rec.items())
		if err != nil {
			return current, fmt.Errorf("apply stage %s: %w", stageID, err)
		}
	}
	return next, nil
}

// items converts the record lists into typed items in display order.
func (r stageRecord) items() []domain.JourneyItem {
	var items []domain.JourneyItem
	items = append(items, domain.NewItems(r.CustomerThoughts, domain.ItemEmotion)...)
	items = append(items, domain.NewItems(r.Touchpoints, domain.ItemTouchpoint)...)
	items = append(items, domain.NewItems(r.Automations, domain.ItemAutomation)...)
	items = append(items, domain.NewItems(r.Content, domain.ItemContent)...)
	items = append(items, domain.NewItems(r.Risks, domain.ItemRisk)...)
	return items
}

// SuggestItems asks for new items for stage. Suggestions come back as
// touchpoint items ready to be appended; blank suggestions are dropped and an
// empty result means there is nothing to add.
func (s *Service) SuggestItems(ctx context.Context, apiKey string, business domain.BusinessProfile, stage domain.JourneyStage) ([]domain.JourneyItem, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingCredential
	}

	existing := make([]string, len(stage.Items))
	for i, it := range stage.Items {
		existing[i] = it.Content
	}

	text, err := s.model.Generate(ctx, apiKey, Request{
		Operation: "suggest_items",
		Prompt:    buildSuggestionPrompt(business, stage.Title, existing),
		JSON:      true,
	})
	if err != nil {
		return nil, err
	}

	var list stringList
	if err := decodeResponse(text, &list); err != nil {
		s.logger.Warn("Suggestion response rejected", "stage", stage.ID, "error", err)
		return nil, err
	}
	return domain.NewItems(list.nonBlank(), domain.ItemTouchpoint), nil
}

// Optimize asks the model to review m and returns its findings.
func (s *Service) Optimize(ctx context.Context, apiKey string, business domain.BusinessProfile, m domain.JourneyMap) (domain.OptimizationResult, error) {
	if strings.TrimSpace(apiKey) == "" {
		return domain.OptimizationResult{}, ErrMissingCredential
	}

	prompt, err := buildOptimizationPrompt(business, summarize(m))
	if err != nil {
		return domain.OptimizationResult{}, err
	}
	text, err := s.model.Generate(ctx, apiKey, Request{
		Operation:   "optimize",
		Prompt:      prompt,
		Temperature: temperature(0.5),
		JSON:        true,
	})
	if err != nil {
		return domain.OptimizationResult{}, err
	}

	var report optimizationReport
	if err := decodeResponse(text, &report); err != nil {
		s.logger.Warn("Optimization response rejected", "error", err)
		return domain.OptimizationResult{}, err
	}
	return domain.OptimizationResult{
		Bottlenecks: orEmpty(report.Bottlenecks),
		QuickWins:   orEmpty(report.QuickWins),
		Automations: orEmpty(report.AutomationOpportunities),
		Agents:      orEmpty(report.AIAgentsToBuild),
		ContentGaps: orEmpty(report.ContentGaps),
	}, nil
}

func orEmpty(l stringList) []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}
