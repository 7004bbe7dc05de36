package coach

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// GetProfile returns the stored profile and plan for one user.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userKey := chi.URLParam(r, "userKey")

	profile, err := h.svc.GetProfile(r.Context(), userKey)
	if errors.Is(err, ErrProfileNotFound) {
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, profile)
}

// GetState returns the derived conversation state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	userKey := chi.URLParam(r, "userKey")

	state, err := h.svc.State(r.Context(), userKey)
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{"user_key": userKey, "state": string(state)})
}

// GetMessages returns the persisted conversation log.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userKey := chi.URLParam(r, "userKey")

	entries, err := h.svc.GetHistory(r.Context(), userKey)
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []LogEntry{}
	}

	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
