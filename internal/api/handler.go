// Package api provides HTTP handlers for the journey mapper API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/journey-mapper/internal/ai"
	"github.com/ashureev/journey-mapper/internal/domain"
	"github.com/ashureev/journey-mapper/internal/planner"
	"github.com/ashureev/journey-mapper/internal/reorder"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// Error kinds reported in the "kind" field of error responses.
const (
	KindMissingCredential = "missing_credential"
	KindPrecondition      = "precondition"
	KindNotFound          = "not_found"
	KindInFlight          = "in_flight"
	KindStaleDrop         = "stale_drop"
	KindInvalidMove       = "invalid_move"
	KindTransport         = "transport"
	KindMalformedResponse = "malformed_response"
	KindEmptyResponse     = "empty_response"
	KindInvalidImport     = "invalid_import"
	KindBadRequest        = "bad_request"
	KindInternal          = "internal"
)

// Handler exposes planner operations over HTTP.
type Handler struct {
	planner   *planner.Planner
	aiTimeout time.Duration
	logger    *slog.Logger
}

// NewHandler creates a Handler. A zero aiTimeout leaves AI calls bounded by
// the request context only.
func NewHandler(p *planner.Planner, aiTimeout time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{planner: p, aiTimeout: aiTimeout, logger: logger}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, kind, message string) {
	JSON(w, status, map[string]string{"error": message, "kind": kind})
}

// classify maps an operation error to its response status and kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ai.ErrMissingCredential):
		return http.StatusBadRequest, KindMissingCredential
	case errors.Is(err, planner.ErrPrecondition):
		return http.StatusUnprocessableEntity, KindPrecondition
	case errors.Is(err, planner.ErrInFlight):
		return http.StatusConflict, KindInFlight
	case errors.Is(err, reorder.ErrStaleDrop):
		return http.StatusConflict, KindStaleDrop
	case errors.Is(err, domain.ErrIndexOutOfRange):
		return http.StatusBadRequest, KindInvalidMove
	case errors.Is(err, domain.ErrStageNotFound), errors.Is(err, planner.ErrPersonaNotFound):
		return http.StatusNotFound, KindNotFound
	case errors.Is(err, planner.ErrInvalidImport):
		return http.StatusBadRequest, KindInvalidImport
	case errors.Is(err, ai.ErrTransport):
		return http.StatusBadGateway, KindTransport
	case errors.Is(err, ai.ErrMalformedResponse):
		return http.StatusBadGateway, KindMalformedResponse
	case errors.Is(err, ai.ErrEmptyResponse):
		return http.StatusBadGateway, KindEmptyResponse
	}
	return http.StatusInternalServerError, KindInternal
}

// fail writes the response for an operation error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", r.URL.Path, "kind", kind, "error", err)
	} else {
		h.logger.Warn("Request rejected", "path", r.URL.Path, "kind", kind, "error", err)
	}
	message := err.Error()
	if kind == KindInternal {
		message = "internal error"
	}
	Error(w, status, kind, message)
}

// decode reads a size-limited JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
