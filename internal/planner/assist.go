package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/journey-mapper/internal/ai"
	"github.com/ashureev/journey-mapper/internal/domain"
)

// GenerateJourney replaces the whole journey with an AI generated one. The
// current journey is kept if the call fails.
func (p *Planner) GenerateJourney(ctx context.Context) error {
	p.mu.Lock()
	if p.credential == "" {
		p.mu.Unlock()
		return ai.ErrMissingCredential
	}
	if strings.TrimSpace(p.business.Name) == "" || strings.TrimSpace(p.business.Offer) == "" {
		p.mu.Unlock()
		return fmt.Errorf("%w: business name and offer are required", ErrPrecondition)
	}
	if p.generating {
		p.mu.Unlock()
		return fmt.Errorf("%w: journey generation", ErrInFlight)
	}
	p.generating = true
	key := p.credential
	business := p.business.Clone()
	current := p.journey
	var persona *domain.Persona
	if found, ok := domain.FindPersona(p.personas, p.activePersonaID); ok {
		persona = &found
	}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.generating = false
		p.mu.Unlock()
	}()

	p.logger.Info("Generating journey", "business", business.Name, "persona", personaName(persona))
	next, err := p.assistant.GenerateJourney(ctx, key, business, persona, current)
	if err != nil {
		p.logger.Warn("Journey generation failed", "error", err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.journey = next
	p.logger.Info("Journey generated", "items", next.ItemCount())
	// The AI deadline must not fail the save of a result already applied.
	return p.persistLocked(context.WithoutCancel(ctx))
}

// SuggestStageItems appends AI suggested touchpoints to one stage and returns
// the appended items.
func (p *Planner) SuggestStageItems(ctx context.Context, stageID string) ([]domain.JourneyItem, error) {
	p.mu.Lock()
	if p.credential == "" {
		p.mu.Unlock()
		return nil, ai.ErrMissingCredential
	}
	stage, ok := p.journey.Stage(stageID)
	if !ok {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", domain.ErrStageNotFound, stageID)
	}
	if p.suggesting[stageID] {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: suggestions for %s", ErrInFlight, stageID)
	}
	p.suggesting[stageID] = true
	key := p.credential
	business := p.business.Clone()
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.suggesting, stageID)
		p.mu.Unlock()
	}()

	items, err := p.assistant.SuggestItems(ctx, key, business, stage)
	if err != nil {
		p.logger.Warn("Stage suggestion failed", "stage", stageID, "error", err)
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := p.journey.AppendItems(stageID, items...)
	if err != nil {
		return nil, err
	}
	p.journey = next
	return items, p.persistLocked(context.WithoutCancel(ctx))
}

// Optimize runs an optimization pass over the current journey and keeps the
// result. A failed pass leaves the previous result in place.
func (p *Planner) Optimize(ctx context.Context) (domain.OptimizationResult, error) {
	p.mu.Lock()
	if p.credential == "" {
		p.mu.Unlock()
		return domain.OptimizationResult{}, ai.ErrMissingCredential
	}
	if p.optimizing {
		p.mu.Unlock()
		return domain.OptimizationResult{}, fmt.Errorf("%w: optimization", ErrInFlight)
	}
	p.optimizing = true
	p.panelOpen = true
	key := p.credential
	business := p.business.Clone()
	current := p.journey
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.optimizing = false
		p.mu.Unlock()
	}()

	res, err := p.assistant.Optimize(ctx, key, business, current)
	if err != nil {
		p.logger.Warn("Optimization failed", "error", err)
		return domain.OptimizationResult{}, err
	}

	p.mu.Lock()
	p.optimization = &res
	p.mu.Unlock()
	return res, nil
}

func personaName(p *domain.Persona) string {
	if p == nil {
		return ""
	}
	return p.Name
}
