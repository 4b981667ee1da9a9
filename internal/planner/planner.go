// Package planner owns the journey planning document and mediates every
// user action between the AI adapter, the reorder engine and persistence.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/journey-mapper/internal/ai"
	"github.com/ashureev/journey-mapper/internal/domain"
	"github.com/ashureev/journey-mapper/internal/reorder"
	"github.com/ashureev/journey-mapper/internal/store"
)

var (
	// ErrPrecondition is returned when required input is missing.
	ErrPrecondition = errors.New("precondition failed")
	// ErrInFlight is returned when the same AI operation is already running.
	ErrInFlight = errors.New("operation already in progress")
	// ErrPersonaNotFound is returned for unknown persona ids.
	ErrPersonaNotFound = errors.New("persona not found")
	// ErrInvalidImport is returned when an import document cannot be used.
	ErrInvalidImport = errors.New("invalid import document")
)

// Assistant is the AI adapter used by the planner.
type Assistant interface {
	GenerateJourney(ctx context.Context, apiKey string, business domain.BusinessProfile, persona *domain.Persona, current domain.JourneyMap) (domain.JourneyMap, error)
	SuggestItems(ctx context.Context, apiKey string, business domain.BusinessProfile, stage domain.JourneyStage) ([]domain.JourneyItem, error)
	Optimize(ctx context.Context, apiKey string, business domain.BusinessProfile, m domain.JourneyMap) (domain.OptimizationResult, error)
}

// Ensure the AI service satisfies Assistant.
var _ Assistant = (*ai.Service)(nil)

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) { p.logger = logger }
}

// WithClock sets the time source used for export file names.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// WithDefaultCredential sets the API key used when none has been stored.
func WithDefaultCredential(key string) Option {
	return func(p *Planner) { p.credential = strings.TrimSpace(key) }
}

// Planner is the single owner of the planning document. Its methods are safe
// for concurrent use; AI calls run without holding the lock and their results
// are applied to the state current at completion.
type Planner struct {
	repo      store.Repository
	assistant Assistant
	logger    *slog.Logger
	now       func() time.Time

	mu              sync.Mutex
	credential      string
	business        domain.BusinessProfile
	personas        []domain.Persona
	activePersonaID string
	journey         domain.JourneyMap
	optimization    *domain.OptimizationResult

	generating  bool
	optimizing  bool
	suggesting  map[string]bool
	panelOpen   bool
	sidebarOpen bool
}

// New creates a planner holding the default document.
func New(repo store.Repository, assistant Assistant, opts ...Option) *Planner {
	p := &Planner{
		repo:        repo,
		assistant:   assistant,
		logger:      slog.Default(),
		now:         time.Now,
		business:    domain.DefaultBusinessProfile(),
		personas:    []domain.Persona{},
		journey:     domain.NewJourneyMap(),
		suggesting:  make(map[string]bool),
		sidebarOpen: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load replaces the in-memory state with whatever the repository holds.
// Values that were never stored keep their defaults.
func (p *Planner) Load(ctx context.Context) error {
	st, err := p.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if st.Credential != nil && *st.Credential != "" {
		p.credential = *st.Credential
	}
	if st.Business != nil {
		p.business = normalizeBusiness(*st.Business)
	}
	if st.Personas != nil {
		p.personas = append([]domain.Persona{}, (*st.Personas)...)
	}
	if st.Journey != nil {
		p.journey = *st.Journey
	}
	p.logger.Info("Planner state loaded",
		"personas", len(p.personas),
		"stages", p.journey.Len(),
		"items", p.journey.ItemCount(),
		"has_credential", p.credential != "")
	return nil
}

// Snapshot returns a consistent copy of the current state.
func (p *Planner) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := State{
		HasCredential: p.credential != "",
		Business:      p.business.Clone(),
		Personas:      append([]domain.Persona{}, p.personas...),
		JourneyMap:    p.journey,
		UI: UIState{
			Generating:  p.generating,
			Optimizing:  p.optimizing,
			Suggesting:  []string{},
			PanelOpen:   p.panelOpen,
			SidebarOpen: p.sidebarOpen,
		},
	}
	if p.activePersonaID != "" {
		id := p.activePersonaID
		st.ActivePersonaID = &id
	}
	if p.optimization != nil {
		res := *p.optimization
		st.Optimization = &res
	}
	for id := range p.suggesting {
		st.UI.Suggesting = append(st.UI.Suggesting, id)
	}
	sort.Strings(st.UI.Suggesting)
	return st
}

// SetCredential stores the AI API key.
func (p *Planner) SetCredential(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.credential = strings.TrimSpace(key)
	return p.persistLocked(ctx)
}

// UpdateBusiness applies the non-nil fields of patch.
func (p *Planner) UpdateBusiness(ctx context.Context, patch BusinessPatch) (domain.BusinessProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.business = patch.apply(p.business)
	return p.business.Clone(), p.persistLocked(ctx)
}

// AddPersona creates a persona from draft and makes it active.
func (p *Planner) AddPersona(ctx context.Context, draft domain.Persona) (domain.Persona, error) {
	if strings.TrimSpace(draft.Name) == "" {
		return domain.Persona{}, fmt.Errorf("%w: persona name is required", ErrPrecondition)
	}
	persona := domain.NewPersona(draft)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.personas = append(append([]domain.Persona{}, p.personas...), persona)
	p.activePersonaID = persona.ID
	return persona, p.persistLocked(ctx)
}

// SelectPersona makes id the active persona. An empty id clears the selection.
func (p *Planner) SelectPersona(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id != "" {
		if _, ok := domain.FindPersona(p.personas, id); !ok {
			return fmt.Errorf("%w: %s", ErrPersonaNotFound, id)
		}
	}
	p.activePersonaID = id
	return nil
}

// DeletePersona removes a persona, clearing the selection if it was active.
func (p *Planner) DeletePersona(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := make([]domain.Persona, 0, len(p.personas))
	found := false
	for _, persona := range p.personas {
		if persona.ID == id {
			found = true
			continue
		}
		kept = append(kept, persona)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrPersonaNotFound, id)
	}
	p.personas = kept
	if p.activePersonaID == id {
		p.activePersonaID = ""
	}
	return p.persistLocked(ctx)
}

// MoveItem applies a drag-and-drop result to the journey.
func (p *Planner) MoveItem(ctx context.Context, drop reorder.DropResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if drop.IsNoop() {
		return nil
	}
	next, err := reorder.Apply(p.journey, drop)
	if err != nil {
		return err
	}
	p.journey = next
	return p.persistLocked(ctx)
}

// SetPanelOpen shows or hides the optimization panel.
func (p *Planner) SetPanelOpen(open bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.panelOpen = open
}

// SetSidebarOpen shows or hides the settings sidebar.
func (p *Planner) SetSidebarOpen(open bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sidebarOpen = open
}

// persistLocked writes the durable state. Callers must hold p.mu.
func (p *Planner) persistLocked(ctx context.Context) error {
	credential := p.credential
	business := p.business.Clone()
	personas := append([]domain.Persona{}, p.personas...)
	journey := p.journey

	err := p.repo.Save(ctx, &store.State{
		Credential: &credential,
		Business:   &business,
		Personas:   &personas,
		Journey:    &journey,
	})
	if err != nil {
		p.logger.Error("Failed to persist planner state", "error", err)
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

func normalizeBusiness(b domain.BusinessProfile) domain.BusinessProfile {
	if b.Goals == nil {
		b.Goals = []string{}
	}
	return b.Clone()
}
