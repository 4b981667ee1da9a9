// Package reorder applies drag-and-drop results to a journey map.
package reorder

import (
	"errors"
	"fmt"

	"github.com/ashureev/journey-mapper/internal/domain"
)

// ErrStaleDrop is returned when the dragged item is no longer at the source position.
var ErrStaleDrop = errors.New("dragged item is not at the source position")

// DropResult describes a completed drag gesture. A nil Destination means the
// item was dropped outside any stage.
type DropResult struct {
	DraggableID string           `json:"draggableId"`
	Source      domain.Location  `json:"source"`
	Destination *domain.Location `json:"destination"`
}

// IsNoop reports whether applying r leaves any map unchanged.
func (r DropResult) IsNoop() bool {
	if r.Destination == nil {
		return true
	}
	return r.Destination.StageID == r.Source.StageID && r.Destination.Index == r.Source.Index
}

// Apply returns the map produced by r. The input map is never modified; on
// error it is returned as is.
func Apply(m domain.JourneyMap, r DropResult) (domain.JourneyMap, error) {
	if r.IsNoop() {
		return m, nil
	}

	src, ok := m.Stage(r.Source.StageID)
	if !ok {
		return m, fmt.Errorf("%w: %s", domain.ErrStageNotFound, r.Source.StageID)
	}
	if r.Source.Index < 0 || r.Source.Index >= len(src.Items) {
		return m, fmt.Errorf("%w: %s[%d]", domain.ErrIndexOutOfRange, r.Source.StageID, r.Source.Index)
	}
	if r.DraggableID != "" && src.Items[r.Source.Index].ID != r.DraggableID {
		return m, fmt.Errorf("%w: %s", ErrStaleDrop, r.DraggableID)
	}

	return m.MoveItem(r.Source, *r.Destination)
}
