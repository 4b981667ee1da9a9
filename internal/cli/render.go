package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ashureev/journey-mapper/internal/domain"
)

var (
	colorMuted = lipgloss.Color("#565f89")

	typeColors = map[domain.ItemType]lipgloss.Color{
		domain.ItemTouchpoint: lipgloss.Color("#7aa2f7"),
		domain.ItemEmotion:    lipgloss.Color("#bb9af7"),
		domain.ItemAutomation: lipgloss.Color("#9ece6a"),
		domain.ItemContent:    lipgloss.Color("#e0af68"),
		domain.ItemRisk:       lipgloss.Color("#f7768e"),
	}

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#c0caf5"))
	labelStyle = lipgloss.NewStyle().Foreground(colorMuted)
	stageStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)

func itemLine(it domain.JourneyItem) string {
	tag := lipgloss.NewStyle().Foreground(typeColors[it.Type]).Render(fmt.Sprintf("[%s]", it.Type.Label()))
	return tag + " " + it.Content
}

// renderStage draws one stage as a bordered block.
func renderStage(s domain.JourneyStage) string {
	lines := []string{titleStyle.Render(fmt.Sprintf("%s (%s)", s.Title, s.ID))}
	if len(s.Items) == 0 {
		lines = append(lines, labelStyle.Render("no items"))
	}
	for i, it := range s.Items {
		lines = append(lines, fmt.Sprintf("%d. %s", i, itemLine(it)))
	}
	return stageStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderBoard draws every stage in order.
func renderBoard(m domain.JourneyMap) string {
	stages := m.Stages()
	blocks := make([]string, 0, len(stages)+1)
	blocks = append(blocks, labelStyle.Render(fmt.Sprintf("%d stages, %d items", len(stages), m.ItemCount())))
	for _, s := range stages {
		blocks = append(blocks, renderStage(s))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func renderBusiness(b domain.BusinessProfile, hasCredential bool) string {
	key := "not set"
	if hasCredential {
		key = "set"
	}
	rows := [][2]string{
		{"Business", b.Name},
		{"Offer", b.Offer},
		{"Customer", b.Customer},
		{"Price", b.Price},
		{"Goals", strings.Join(b.Goals, ", ")},
		{"API key", key},
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%-9s", r[0]))+" "+r[1])
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderOptimization(res domain.OptimizationResult) string {
	sections := []struct {
		title string
		items []string
	}{
		{"Bottlenecks", res.Bottlenecks},
		{"Quick wins", res.QuickWins},
		{"Automations", res.Automations},
		{"AI agents", res.Agents},
		{"Content gaps", res.ContentGaps},
	}
	blocks := make([]string, 0, len(sections))
	for _, sec := range sections {
		lines := []string{titleStyle.Render(sec.title)}
		if len(sec.items) == 0 {
			lines = append(lines, labelStyle.Render("none"))
		}
		for _, it := range sec.items {
			lines = append(lines, "- "+it)
		}
		blocks = append(blocks, lipgloss.JoinVertical(lipgloss.Left, lines...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}
