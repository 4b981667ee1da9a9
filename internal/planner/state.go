package planner

import "github.com/ashureev/journey-mapper/internal/domain"

// State is a read-only view of the planner for rendering.
type State struct {
	HasCredential   bool                       `json:"hasCredential"`
	Business        domain.BusinessProfile     `json:"businessData"`
	Personas        []domain.Persona           `json:"personas"`
	ActivePersonaID *string                    `json:"activePersonaId"`
	JourneyMap      domain.JourneyMap          `json:"journeyMap"`
	Optimization    *domain.OptimizationResult `json:"optimization"`
	UI              UIState                    `json:"ui"`
}

// UIState holds visibility and in-flight flags.
type UIState struct {
	Generating  bool     `json:"generating"`
	Optimizing  bool     `json:"optimizing"`
	Suggesting  []string `json:"suggesting"`
	PanelOpen   bool     `json:"panelOpen"`
	SidebarOpen bool     `json:"sidebarOpen"`
}

// BusinessPatch carries a partial business profile edit. Nil fields are kept.
type BusinessPatch struct {
	Name      *string   `json:"name"`
	Offer     *string   `json:"offer"`
	Customer  *string   `json:"customer"`
	Price     *string   `json:"price"`
	Goals     *[]string `json:"goals"`
	GoalsText *string   `json:"goalsText"`
}

func (b BusinessPatch) apply(p domain.BusinessProfile) domain.BusinessProfile {
	p = p.Clone()
	if b.Name != nil {
		p.Name = *b.Name
	}
	if b.Offer != nil {
		p.Offer = *b.Offer
	}
	if b.Customer != nil {
		p.Customer = *b.Customer
	}
	if b.Price != nil {
		p.Price = *b.Price
	}
	switch {
	case b.Goals != nil:
		p.Goals = append([]string{}, (*b.Goals)...)
	case b.GoalsText != nil:
		p.Goals = domain.ParseGoals(*b.GoalsText)
	}
	return p
}
