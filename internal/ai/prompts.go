package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashureev/journey-mapper/internal/domain"
)

func buildJourneyPrompt(b domain.BusinessProfile, persona *domain.Persona, stageTitles []string) string {
	personaContext := "Focus on the general ideal customer described."
	if persona != nil {
		personaContext = fmt.Sprintf("Focus deeply on this specific persona: %s (%s). Pain points: %s. Behaviors: %s. Buying triggers: %s.",
			persona.Name, persona.Demographics, persona.PainPoints, persona.Behaviors, persona.BuyingTriggers)
	}

	return fmt.Sprintf(`You are a customer journey mapping expert.
Analyze this business:
Name: %s
Offer: %s
Target audience: %s
Price point: %s
Goals: %s

%s

Map the customer journey for these stages: %s.

Return ONLY a JSON array with one object per stage and no other text:
{
  "stage": "stage name",
  "goals": ["string"],
  "customer_thoughts": ["string"],
  "touchpoints": ["string"],
  "automations": ["string"],
  "content": ["string"],
  "risks": ["string"],
  "fixes": ["string"]
}`, b.Name, b.Offer, b.Customer, b.Price, strings.Join(b.Goals, ", "), personaContext, strings.Join(stageTitles, ", "))
}

func buildSuggestionPrompt(b domain.BusinessProfile, stageTitle string, existing []string) string {
	return fmt.Sprintf(`Business: %s (%s)
Stage: %s
Existing items in stage: %s

Suggest 3 new, high-impact items (touchpoints, specific content ideas or automations) for this stage.
Return ONLY a JSON array of strings.`, b.Name, b.Offer, stageTitle, strings.Join(existing, ", "))
}

func buildOptimizationPrompt(b domain.BusinessProfile, summary []stageSummary) (string, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("encode journey summary: %w", err)
	}
	return fmt.Sprintf(`You are a revenue operations and customer experience consultant.
Analyze this customer journey for %s (%s).

Journey data:
%s

Identify bottlenecks, high-impact quick wins, automation gaps (name tools such as Zapier or n8n), and AI agents that could run parts of this process.

Return ONLY a JSON object:
{
  "bottlenecks": ["string"],
  "quick_wins": ["string"],
  "automation_opportunities": ["string"],
  "ai_agents_to_build": ["string"],
  "content_gaps": ["string"],
  "funnel_ideas": ["string"]
}`, b.Name, b.Offer, data), nil
}

// summarize flattens the map into one line of "type: content" pairs per stage.
func summarize(m domain.JourneyMap) []stageSummary {
	stages := m.Stages()
	out := make([]stageSummary, 0, len(stages))
	for _, s := range stages {
		parts := make([]string, 0, len(s.Items))
		for _, it := range s.Items {
			parts = append(parts, string(it.Type)+": "+it.Content)
		}
		out = append(out, stageSummary{Stage: s.Title, Items: strings.Join(parts, "; ")})
	}
	return out
}
