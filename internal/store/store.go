// Package store provides persistence for the planner's durable state.
package store

import (
	"context"

	"github.com/ashureev/journey-mapper/internal/domain"
)

// Keys under which each piece of state is stored.
const (
	KeyCredential = "cj_api_key"
	KeyBusiness   = "cj_business"
	KeyPersonas   = "cj_personas"
	KeyJourney    = "cj_journey"
)

// State is the durable part of the planner. A nil field means the value has
// never been stored.
type State struct {
	Credential *string
	Business   *domain.BusinessProfile
	Personas   *[]domain.Persona
	Journey    *domain.JourneyMap
}

// Repository defines the interface for persisting planner state.
type Repository interface {
	// Load reads every stored value. Missing keys are left nil.
	Load(ctx context.Context) (*State, error)

	// Save writes every non-nil value of state.
	Save(ctx context.Context, state *State) error

	// Ping verifies storage connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying storage.
	Close() error
}
