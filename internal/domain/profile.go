// Package domain contains the journey planning document types.
package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultStages are the canonical journey stages in presentation order.
var DefaultStages = []string{
	"Awareness",
	"Interest",
	"Consideration",
	"Conversion",
	"Purchase",
	"Delivery",
	"Retention",
	"Referral",
}

// BusinessProfile describes the business the journey is planned for.
type BusinessProfile struct {
	Name     string   `json:"name" yaml:"name"`
	Offer    string   `json:"offer" yaml:"offer"`
	Customer string   `json:"customer" yaml:"customer"`
	Price    string   `json:"price" yaml:"price"`
	Goals    []string `json:"goals" yaml:"goals"`
}

// DefaultBusinessProfile returns an empty profile with a non-nil goal list.
func DefaultBusinessProfile() BusinessProfile {
	return BusinessProfile{Goals: []string{}}
}

// Clone returns a deep copy of the profile.
func (b BusinessProfile) Clone() BusinessProfile {
	b.Goals = append(make([]string, 0, len(b.Goals)), b.Goals...)
	return b
}

// ParseGoals splits a comma separated goal list, dropping blank entries.
func ParseGoals(text string) []string {
	goals := []string{}
	for _, g := range strings.Split(text, ",") {
		if g = strings.TrimSpace(g); g != "" {
			goals = append(goals, g)
		}
	}
	return goals
}

// Persona is a customer archetype used to bias generation.
type Persona struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Demographics   string `json:"demographics" yaml:"demographics"`
	PainPoints     string `json:"painPoints" yaml:"painPoints"`
	Behaviors      string `json:"behaviors" yaml:"behaviors"`
	BuyingTriggers string `json:"buyingTriggers" yaml:"buyingTriggers"`
}

// NewPersona assigns a fresh identifier to p.
func NewPersona(p Persona) Persona {
	p.ID = uuid.NewString()
	return p
}

// FindPersona returns the persona with the given id.
func FindPersona(personas []Persona, id string) (Persona, bool) {
	for _, p := range personas {
		if p.ID == id {
			return p, true
		}
	}
	return Persona{}, false
}

// ValidatePersonas rejects personas with empty or repeated ids.
func ValidatePersonas(personas []Persona) error {
	seen := make(map[string]bool, len(personas))
	for i, p := range personas {
		if p.ID == "" {
			return fmt.Errorf("persona %d has no id", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate persona %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// OptimizationResult holds the findings of one optimization pass.
type OptimizationResult struct {
	Bottlenecks []string `json:"bottlenecks" yaml:"bottlenecks"`
	QuickWins   []string `json:"quickWins" yaml:"quickWins"`
	Automations []string `json:"automations" yaml:"automations"`
	Agents      []string `json:"agents" yaml:"agents"`
	ContentGaps []string `json:"contentGaps" yaml:"contentGaps"`
}

// ExportDocument is the bulk export/import format. On import any subset of
// the fields may be present; nil fields are left untouched.
type ExportDocument struct {
	BusinessData *BusinessProfile `json:"businessData,omitempty" yaml:"businessData,omitempty"`
	Personas     *[]Persona       `json:"personas,omitempty" yaml:"personas,omitempty"`
	JourneyMap   *JourneyMap      `json:"journeyMap,omitempty" yaml:"journeyMap,omitempty"`
}
