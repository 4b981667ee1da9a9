package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ashureev/journey-mapper/internal/domain"
)

// ImportResult reports which parts of the document an import replaced.
type ImportResult struct {
	Business bool `json:"businessData"`
	Personas bool `json:"personas"`
	Journey  bool `json:"journeyMap"`
}

// Document returns the current business profile, personas and journey as an
// export document.
func (p *Planner) Document() domain.ExportDocument {
	p.mu.Lock()
	defer p.mu.Unlock()

	business := p.business.Clone()
	personas := append([]domain.Persona{}, p.personas...)
	journey := p.journey
	return domain.ExportDocument{
		BusinessData: &business,
		Personas:     &personas,
		JourneyMap:   &journey,
	}
}

// Export serializes the document as indented JSON and names the file after
// the current date.
func (p *Planner) Export() (string, []byte, error) {
	data, err := json.MarshalIndent(p.Document(), "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("encode export: %w", err)
	}
	return p.ExportFilename("json"), data, nil
}

// ExportFilename returns the dated file name for an export with extension ext.
func (p *Planner) ExportFilename(ext string) string {
	return fmt.Sprintf("journey_map_%s.%s", p.now().UTC().Format("2006-01-02"), ext)
}

// Import replaces every part present in data. The document is fully decoded
// and validated first; on error nothing changes.
func (p *Planner) Import(ctx context.Context, data []byte) (ImportResult, error) {
	var doc domain.ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	if doc.Personas != nil {
		if err := domain.ValidatePersonas(*doc.Personas); err != nil {
			return ImportResult{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
		}
	}

	res := ImportResult{
		Business: doc.BusinessData != nil,
		Personas: doc.Personas != nil,
		Journey:  doc.JourneyMap != nil,
	}
	if !res.Business && !res.Personas && !res.Journey {
		return res, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if doc.BusinessData != nil {
		p.business = normalizeBusiness(*doc.BusinessData)
	}
	if doc.Personas != nil {
		p.personas = append([]domain.Persona{}, (*doc.Personas)...)
		if _, ok := domain.FindPersona(p.personas, p.activePersonaID); !ok {
			p.activePersonaID = ""
		}
	}
	if doc.JourneyMap != nil {
		p.journey = *doc.JourneyMap
	}
	p.logger.Info("Document imported", "business", res.Business, "personas", res.Personas, "journey", res.Journey)
	return res, p.persistLocked(ctx)
}
