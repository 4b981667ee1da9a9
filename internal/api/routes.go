package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/journey-mapper/internal/domain"
	"github.com/ashureev/journey-mapper/internal/planner"
	"github.com/ashureev/journey-mapper/internal/reorder"
)

// RegisterRoutes registers the planner routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Put("/credential", h.SetCredential)
		r.Patch("/business", h.UpdateBusiness)

		r.Post("/personas", h.AddPersona)
		r.Put("/personas/active", h.SelectPersona)
		r.Delete("/personas/{id}", h.DeletePersona)

		r.Post("/journey/generate", h.GenerateJourney)
		r.Post("/journey/move", h.MoveItem)
		r.Post("/stages/{stageID}/suggestions", h.SuggestStageItems)
		r.Post("/optimize", h.Optimize)

		r.Put("/ui", h.UpdateUI)
		r.Get("/export", h.Export)
		r.Post("/import", h.Import)
	})
}

// GetState returns the current planner snapshot.
func (h *Handler) GetState(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.planner.Snapshot())
}

type credentialRequest struct {
	APIKey string `json:"apiKey"`
}

// SetCredential stores the AI API key.
func (h *Handler) SetCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, KindBadRequest, err.Error())
		return
	}
	if err := h.planner.SetCredential(r.Context(), req.APIKey); err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"hasCredential": h.planner.Snapshot().HasCredential})
}

// UpdateBusiness applies a partial business profile edit.
func (h *Handler) UpdateBusiness(w http.ResponseWriter, r *http.Request) {
	var patch planner.BusinessPatch
	if err := decode(w, r, &patch); err != nil {
		Error(w, http.StatusBadRequest, KindBadRequest, err.Error())
		return
	}
	business, err := h.planner.UpdateBusiness(r.Context(), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, business)
}

// AddPersona creates a persona and makes it active.
func (h *Handler) AddPersona(w http.ResponseWriter, r *http.Request) {
	var draft domain.Persona
	if err := decode(w, r, &draft); err != nil {
		Error(w, http.StatusBadRequest, KindBadRequest, err.Error())
		return
	}
	persona, err := h.planner.AddPersona(r.Context(), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, persona)
}

type selectPersonaRequest struct {
	ID string `json:"id"`
}

// SelectPersona changes the active persona.
func (h *Handler) SelectPersona(w http.ResponseWriter, r *http.Request) {
	var req selectPersonaRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, KindBadRequest, err.Error())
		return
	}
	if err := h.planner.SelectPersona(req.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"activePersonaId": req.ID})
}

// DeletePersona removes a persona.
func (h *Handler) DeletePersona(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.DeletePersona(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateJourney regenerates the whole journey.
func (h *Handler) GenerateJourney(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.aiContext(r.Context())
	defer cancel()

	if err := h.planner.GenerateJourney(ctx); err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, h.planner.Snapshot().JourneyMap)
}

// MoveItem applies a drop result.
func (h *Handler) MoveItem(w http.ResponseWriter, r *http.Request) {
	var drop reorder.DropResult
	if err := decode(w, r, &drop); err != nil {
		Error(w, http.StatusBadRequest, KindBadRequest, err.Error())
		return
	}
	if err := h.planner.MoveItem(r.Context(), drop); err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, h.planner.Snapshot().JourneyMap)
}

// SuggestStageItems appends suggested touchpoints to a stage.
func (h *Handler) SuggestStageItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.aiContext(r.Context())
	defer cancel()

	items, err := h.planner.SuggestStageItems(ctx, chi.URLParam(r, "stageID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"items":      items,
		"journeyMap": h.planner.Snapshot().JourneyMap,
	})
}

// Optimize runs an optimization pass.
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.aiContext(r.Context())
	defer cancel()

	res, err := h.planner.Optimize(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

type uiRequest struct {
	PanelOpen   *bool `json:"panelOpen"`
	SidebarOpen *bool `json:"sidebarOpen"`
}

// UpdateUI toggles panel visibility.
func (h *Handler) UpdateUI(w http.ResponseWriter, r *http.Request) {
	var req uiRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, KindBadRequest, err.Error())
		return
	}
	if req.PanelOpen != nil {
		h.planner.SetPanelOpen(*req.PanelOpen)
	}
	if req.SidebarOpen != nil {
		h.planner.SetSidebarOpen(*req.SidebarOpen)
	}
	JSON(w, http.StatusOK, h.planner.Snapshot().UI)
}

// Export downloads the planning document.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.planner.Export()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Debug("Failed to write export", "error", err)
	}
}

// Import replaces the parts of the document present in the body.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, KindBadRequest, "import document too large")
			return
		}
		Error(w, http.StatusBadRequest, KindBadRequest, err.Error())
		return
	}
	res, err := h.planner.Import(r.Context(), data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"imported": res,
		"state":    h.planner.Snapshot(),
	})
}

func (h *Handler) aiContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.aiTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.aiTimeout)
}
