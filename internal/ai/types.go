// Package ai turns Gemini responses into journey map changes.
package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stringList decodes a loosely typed list of strings. null becomes empty, a
// bare string becomes a single entry and non-string entries are skipped.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*l = nil
	case string:
		*l = stringList{v}
	case []any:
		out := make(stringList, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		*l = out
	default:
		return fmt.Errorf("expected a list of strings, got %T", raw)
	}
	return nil
}

// nonBlank returns the entries that contain more than whitespace.
func (l stringList) nonBlank() []string {
	out := make([]string, 0, len(l))
	for _, s := range l {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// stageRecord is one element of the journey generation response.
type stageRecord struct {
	Stage            *string    `json:"stage"`
	Goals            stringList `json:"goals"`
	CustomerThoughts stringList `json:"customer_thoughts"`
	Touchpoints      stringList `json:"touchpoints"`
	Automations      stringList `json:"automations"`
	Content          stringList `json:"content"`
	Risks            stringList `json:"risks"`
	Fixes            stringList `json:"fixes"`
}

// optimizationReport is the optimization response object.
type optimizationReport struct {
	Bottlenecks             stringList `json:"bottlenecks"`
	QuickWins               stringList `json:"quick_wins"`
	AutomationOpportunities stringList `json:"automation_opportunities"`
	AIAgentsToBuild         stringList `json:"ai_agents_to_build"`
	ContentGaps             stringList `json:"content_gaps"`
	FunnelIdeas             stringList `json:"funnel_ideas"`
}

// stageSummary is the compact per-stage view sent with optimization requests.
type stageSummary struct {
	Stage string `json:"stage"`
	Items string `json:"items"`
}
