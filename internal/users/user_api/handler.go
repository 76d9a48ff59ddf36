package user_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"events-system/internal/auth"
	"events-system/internal/events"
	"events-system/internal/logger"

	"github.com/go-chi/chi/v5"
)

// Handler serves the per-user event listing. The filter is the creator
// match only, so a user's private events show up on their own listing page
// whoever asks for it.
type Handler struct {
	EventService *events.Service
	Logger       *logger.Logger
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/users/{id}/events", h.ListUserEvents)
}

func (h *Handler) ListUserEvents(w http.ResponseWriter, r *http.Request) {
	targetUserID := chi.URLParam(r, "id")
	viewer := auth.IdentityFromContext(r.Context())

	page, pageSize := 1, 20
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			page = parsed
		}
	}
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			pageSize = parsed
		}
	}

	result, err := h.EventService.ListEventsByUser(r.Context(), targetUserID, viewer, page, pageSize)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListUserEvents: %v", err))
		http.Error(w, "Failed to list events", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListUserEvents: failed to encode response: %v", err))
	}
}
