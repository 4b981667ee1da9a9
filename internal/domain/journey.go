package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrStageNotFound is returned when a stage id is not part of the map.
	ErrStageNotFound = errors.New("stage not found")
	// ErrIndexOutOfRange is returned when a source position holds no item.
	ErrIndexOutOfRange = errors.New("item index out of range")
	// ErrInvalidJourney is returned when a decoded map breaks the stage invariants.
	ErrInvalidJourney = errors.New("invalid journey map")
)

// ItemType classifies a journey item.
type ItemType string

const (
	ItemTouchpoint ItemType = "touchpoint"
	ItemEmotion    ItemType = "emotion"
	ItemAutomation ItemType = "automation"
	ItemContent    ItemType = "content"
	ItemRisk       ItemType = "risk"
)

// ItemTypes lists every valid item type in display order.
var ItemTypes = []ItemType{ItemTouchpoint, ItemEmotion, ItemAutomation, ItemContent, ItemRisk}

// Valid reports whether t belongs to the closed set of item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTouchpoint, ItemEmotion, ItemAutomation, ItemContent, ItemRisk:
		return true
	}
	return false
}

// Label returns the human readable name of the type.
func (t ItemType) Label() string {
	switch t {
	case ItemTouchpoint:
		return "Touchpoint"
	case ItemEmotion:
		return "Emotion"
	case ItemAutomation:
		return "Automation"
	case ItemContent:
		return "Content"
	case ItemRisk:
		return "Risk"
	}
	return string(t)
}

// UnmarshalJSON rejects types outside the closed set.
func (t *ItemType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("item type: %w", err)
	}
	if !ItemType(s).Valid() {
		return fmt.Errorf("unknown item type %q", s)
	}
	*t = ItemType(s)
	return nil
}

// JourneyItem is a single entry inside a stage.
type JourneyItem struct {
	ID      string   `json:"id" yaml:"id"`
	Content string   `json:"content" yaml:"content"`
	Type    ItemType `json:"type" yaml:"type"`
}

// NewItem creates an item with a fresh identifier.
func NewItem(content string, typ ItemType) JourneyItem {
	return JourneyItem{ID: uuid.NewString(), Content: content, Type: typ}
}

// NewItems creates one item of the given type per content string.
func NewItems(contents []string, typ ItemType) []JourneyItem {
	items := make([]JourneyItem, 0, len(contents))
	for _, c := range contents {
		items = append(items, NewItem(c, typ))
	}
	return items
}

// JourneyStage is one phase of the customer journey.
type JourneyStage struct {
	ID    string        `json:"id" yaml:"id"`
	Title string        `json:"title" yaml:"title"`
	Items []JourneyItem `json:"items" yaml:"items"`
}

// Location addresses a position inside a stage.
type Location struct {
	StageID string `json:"droppableId"`
	Index   int    `json:"index"`
}

// Slug derives a stage identifier from a title.
func Slug(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), "-")
}

// JourneyMap is the ordered collection of stages. The zero value is an empty
// map. Values are immutable: every mutation returns a new map and leaves the
// receiver and any slices it shares untouched.
type JourneyMap struct {
	stages []JourneyStage
}

// NewJourneyMap returns the empty canonical journey.
func NewJourneyMap() JourneyMap {
	m, _ := NewJourneyMapFromTitles(DefaultStages)
	return m
}

// NewJourneyMapFromTitles builds an empty map with one stage per title.
func NewJourneyMapFromTitles(titles []string) (JourneyMap, error) {
	stages := make([]JourneyStage, 0, len(titles))
	seen := make(map[string]bool, len(titles))
	for _, title := range titles {
		id := Slug(title)
		if id == "" {
			return JourneyMap{}, fmt.Errorf("%w: empty stage title", ErrInvalidJourney)
		}
		if seen[id] {
			return JourneyMap{}, fmt.Errorf("%w: duplicate stage %q", ErrInvalidJourney, id)
		}
		seen[id] = true
		stages = append(stages, JourneyStage{ID: id, Title: title, Items: []JourneyItem{}})
	}
	return JourneyMap{stages: stages}, nil
}

// Len returns the number of stages.
func (m JourneyMap) Len() int { return len(m.stages) }

// StageOrder returns the stage identifiers in presentation order.
func (m JourneyMap) StageOrder() []string {
	order := make([]string, len(m.stages))
	for i, s := range m.stages {
		order[i] = s.ID
	}
	return order
}

// Stages returns a copy of every stage in order.
func (m JourneyMap) Stages() []JourneyStage {
	out := make([]JourneyStage, len(m.stages))
	for i, s := range m.stages {
		out[i] = copyStage(s)
	}
	return out
}

// Stage looks up a stage by id.
func (m JourneyMap) Stage(id string) (JourneyStage, bool) {
	i := m.indexOf(id)
	if i < 0 {
		return JourneyStage{}, false
	}
	return copyStage(m.stages[i]), true
}

// ItemCount returns the number of items across all stages.
func (m JourneyMap) ItemCount() int {
	n := 0
	for _, s := range m.stages {
		n += len(s.Items)
	}
	return n
}

// ReplaceItems returns a map in which the stage holds exactly items.
func (m JourneyMap) ReplaceItems(stageID string, items []JourneyItem) (JourneyMap, error) {
	i := m.indexOf(stageID)
	if i < 0 {
		return m, fmt.Errorf("%w: %s", ErrStageNotFound, stageID)
	}
	next := m.shallowCopy()
	next.stages[i].Items = append(make([]JourneyItem, 0, len(items)), items...)
	return next, nil
}

// AppendItems returns a map with items added after the existing items of the stage.
func (m JourneyMap) AppendItems(stageID string, items ...JourneyItem) (JourneyMap, error) {
	i := m.indexOf(stageID)
	if i < 0 {
		return m, fmt.Errorf("%w: %s", ErrStageNotFound, stageID)
	}
	if len(items) == 0 {
		return m, nil
	}
	existing := m.stages[i].Items
	merged := make([]JourneyItem, 0, len(existing)+len(items))
	merged = append(merged, existing...)
	merged = append(merged, items...)

	next := m.shallowCopy()
	next.stages[i].Items = merged
	return next, nil
}

// MoveItem removes the item at from and inserts it at to. The destination
// index is interpreted against the destination sequence after removal and is
// clamped to its bounds.
func (m JourneyMap) MoveItem(from, to Location) (JourneyMap, error) {
	src := m.indexOf(from.StageID)
	if src < 0 {
		return m, fmt.Errorf("%w: %s", ErrStageNotFound, from.StageID)
	}
	dst := m.indexOf(to.StageID)
	if dst < 0 {
		return m, fmt.Errorf("%w: %s", ErrStageNotFound, to.StageID)
	}
	srcItems := m.stages[src].Items
	if from.Index < 0 || from.Index >= len(srcItems) {
		return m, fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, from.StageID, from.Index)
	}

	moved := srcItems[from.Index]
	remaining := make([]JourneyItem, 0, len(srcItems)-1)
	remaining = append(remaining, srcItems[:from.Index]...)
	remaining = append(remaining, srcItems[from.Index+1:]...)

	next := m.shallowCopy()
	if src == dst {
		next.stages[src].Items = insertAt(remaining, to.Index, moved)
		return next, nil
	}
	next.stages[src].Items = remaining
	next.stages[dst].Items = insertAt(m.stages[dst].Items, to.Index, moved)
	return next, nil
}

// Cleared returns a map with the same stages and no items.
func (m JourneyMap) Cleared() JourneyMap {
	next := JourneyMap{stages: make([]JourneyStage, len(m.stages))}
	for i, s := range m.stages {
		next.stages[i] = JourneyStage{ID: s.ID, Title: s.Title, Items: []JourneyItem{}}
	}
	return next
}

// Validate checks stage identity uniqueness and item types.
func (m JourneyMap) Validate() error {
	seen := make(map[string]bool, len(m.stages))
	items := make(map[string]bool)
	for _, s := range m.stages {
		if s.ID == "" {
			return fmt.Errorf("%w: stage without id", ErrInvalidJourney)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate stage %q", ErrInvalidJourney, s.ID)
		}
		seen[s.ID] = true
		for _, it := range s.Items {
			if !it.Type.Valid() {
				return fmt.Errorf("%w: item %q has type %q", ErrInvalidJourney, it.ID, it.Type)
			}
			if it.ID != "" && items[it.ID] {
				return fmt.Errorf("%w: duplicate item %q", ErrInvalidJourney, it.ID)
			}
			items[it.ID] = true
		}
	}
	return nil
}

type journeyWire struct {
	Stages     map[string]JourneyStage `json:"stages" yaml:"stages"`
	StageOrder []string                `json:"stageOrder" yaml:"stageOrder"`
}

func (m JourneyMap) wire() journeyWire {
	w := journeyWire{
		Stages:     make(map[string]JourneyStage, len(m.stages)),
		StageOrder: m.StageOrder(),
	}
	for _, s := range m.stages {
		if s.Items == nil {
			s.Items = []JourneyItem{}
		}
		w.Stages[s.ID] = s
	}
	return w
}

// MarshalJSON encodes the map as a stage mapping plus an explicit order.
func (m JourneyMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.wire())
}

// MarshalYAML uses the same shape as the JSON encoding.
func (m JourneyMap) MarshalYAML() (interface{}, error) {
	return m.wire(), nil
}

// UnmarshalJSON decodes the mapping and order and rejects any mismatch
// between the two. A map without stages is rejected.
func (m *JourneyMap) UnmarshalJSON(data []byte) error {
	var w journeyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if len(w.StageOrder) == 0 {
		return fmt.Errorf("%w: no stages", ErrInvalidJourney)
	}
	if len(w.StageOrder) != len(w.Stages) {
		return fmt.Errorf("%w: %d stages but %d order entries", ErrInvalidJourney, len(w.Stages), len(w.StageOrder))
	}
	stages := make([]JourneyStage, 0, len(w.StageOrder))
	seen := make(map[string]bool, len(w.StageOrder))
	for _, id := range w.StageOrder {
		if seen[id] {
			return fmt.Errorf("%w: duplicate order entry %q", ErrInvalidJourney, id)
		}
		seen[id] = true
		s, ok := w.Stages[id]
		if !ok {
			return fmt.Errorf("%w: order entry %q has no stage", ErrInvalidJourney, id)
		}
		if s.ID == "" {
			s.ID = id
		}
		if s.ID != id {
			return fmt.Errorf("%w: stage %q stored under key %q", ErrInvalidJourney, s.ID, id)
		}
		if s.Items == nil {
			s.Items = []JourneyItem{}
		}
		stages = append(stages, s)
	}
	next := JourneyMap{stages: stages}
	if err := next.Validate(); err != nil {
		return err
	}
	*m = next
	return nil
}

func (m JourneyMap) indexOf(id string) int {
	for i, s := range m.stages {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// shallowCopy copies the stage slice; item slices are still shared and must
// be replaced, not written to.
func (m JourneyMap) shallowCopy() JourneyMap {
	return JourneyMap{stages: append([]JourneyStage(nil), m.stages...)}
}

func copyStage(s JourneyStage) JourneyStage {
	s.Items = append(make([]JourneyItem, 0, len(s.Items)), s.Items...)
	return s
}

func insertAt(items []JourneyItem, index int, item JourneyItem) []JourneyItem {
	if index < 0 {
		index = 0
	}
	if index > len(items) {
		index = len(items)
	}
	out := make([]JourneyItem, 0, len(items)+1)
	out = append(out, items[:index]...)
	out = append(out, item)
	out = append(out, items[index:]...)
	return out
}
