package event_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"events-system/internal/auth"
	"events-system/internal/events"
	"events-system/internal/events/pass"
	"events-system/internal/logger"
	"events-system/internal/models"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	EventService *events.Service
	Passes       *pass.Generator
	Logger       *logger.Logger
}

// The listing and read routes take an optional viewer; the mutating routes
// and the pass endpoint sit behind required auth, wired by the caller.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/api/events", h.ListEvents)
	r.Get("/api/events/categories", h.ListCategories)
	r.Get("/api/events/categories/{categoryId}", h.ListEventsByCategory)
	r.Get("/api/events/{id}", h.GetEvent)
}

func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/api/events", h.CreateEvent)
	r.Delete("/api/events/{id}", h.DeleteEvent)
	r.Post("/api/events/{id}/register", h.Register)
	r.Delete("/api/events/{id}/register", h.Unregister)
	r.Get("/api/events/{id}/pass", h.GetPass)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	viewer := auth.IdentityFromContext(r.Context())
	page, pageSize := pageParams(r)

	result, err := h.EventService.ListEvents(r.Context(), viewer, page, pageSize)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListEvents: %v", err))
		http.Error(w, "Failed to list events", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ListEventsByCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := strconv.ParseInt(chi.URLParam(r, "categoryId"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid category id", http.StatusBadRequest)
		return
	}
	viewer := auth.IdentityFromContext(r.Context())
	page, pageSize := pageParams(r)

	result, err := h.EventService.ListEventsByCategory(r.Context(), categoryID, viewer, page, pageSize)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListEventsByCategory: %v", err))
		http.Error(w, "Failed to list events", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid event id", http.StatusBadRequest)
		return
	}
	viewer := auth.IdentityFromContext(r.Context())

	summary, err := h.EventService.GetEventByID(r.Context(), id, viewer)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetEvent: %v", err))
		http.Error(w, "Failed to load event", http.StatusInternalServerError)
		return
	}
	if summary == nil {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.EventService.ListCategories(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListCategories: %v", err))
		http.Error(w, "Failed to list categories", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var input models.CreateEventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	viewer := auth.IdentityFromContext(r.Context())
	h.Logger.Info("API", fmt.Sprintf("CreateEvent: %q by viewer %q", input.Title, viewer.UserID()))

	summary, err := h.EventService.CreateEvent(r.Context(), input, viewer)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateEvent: %v", err))
		http.Error(w, "Failed to create event", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusCreated, summary)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid event id", http.StatusBadRequest)
		return
	}
	viewer := auth.IdentityFromContext(r.Context())

	ok, err := h.EventService.DeleteEvent(r.Context(), id, viewer.UserID())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteEvent: %v", err))
		http.Error(w, "Failed to delete event", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Delete failed", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// registerRequest optionally names the user to act for; the authenticated
// viewer is the default.
type registerRequest struct {
	UserID string `json:"userId"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid event id", http.StatusBadRequest)
		return
	}

	var req registerRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	viewer := auth.IdentityFromContext(r.Context())

	ok, err := h.EventService.RegisterForEvent(r.Context(), id, req.UserID, viewer)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Register: %v", err))
		http.Error(w, "Registration failed", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Registration failed", http.StatusBadRequest)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("Register: user registered for event %d", id))
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) Unregister(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid event id", http.StatusBadRequest)
		return
	}

	var req registerRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	viewer := auth.IdentityFromContext(r.Context())
	userID := req.UserID
	if userID == "" {
		userID = viewer.UserID()
	}
	if userID == "" {
		http.Error(w, "Unregistration failed", http.StatusBadRequest)
		return
	}

	ok, err := h.EventService.UnregisterFromEvent(r.Context(), id, userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Unregister: %v", err))
		http.Error(w, "Unregistration failed", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Unregistration failed", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) GetPass(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid event id", http.StatusBadRequest)
		return
	}
	viewer := auth.IdentityFromContext(r.Context())

	registration, err := h.EventService.GetRegistration(r.Context(), id, viewer.UserID())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPass: %v", err))
		http.Error(w, "Failed to load registration", http.StatusInternalServerError)
		return
	}
	if registration == nil {
		http.Error(w, "Registration not found", http.StatusNotFound)
		return
	}

	// A registrant always passes the visibility check, so a nil summary here
	// means the event is gone.
	summary, err := h.EventService.GetEventByID(r.Context(), id, viewer)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPass: %v", err))
		http.Error(w, "Failed to load event", http.StatusInternalServerError)
		return
	}
	if summary == nil {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	png, err := h.Passes.GeneratePass(*registration, *summary)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPass: failed to generate pass: %v", err))
		http.Error(w, "Failed to generate pass", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPass: failed to write response: %v", err))
	}
}

// pageParams reads page/pageSize query values, defaulting absent or
// malformed values to 1/20. Values are passed through unclamped.
func pageParams(r *http.Request) (int, int) {
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
	return page, pageSize
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Failed to encode response: %v", err))
	}
}
