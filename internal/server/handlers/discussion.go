// internal/server/handlers/discussion.go

package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"campusevents/internal/domain/discussion"
)

// DiscussionHandler handles discussion-related HTTP requests
type DiscussionHandler struct {
	store discussion.Store
	limit int
}

// NewDiscussionHandler creates a new discussion handler
func NewDiscussionHandler(store discussion.Store, limit int) *DiscussionHandler {
	if limit <= 0 {
		limit = 200
	}
	return &DiscussionHandler{
		store: store,
		limit: limit,
	}
}

// ListDiscussion returns the newest discussion items of an event
func (h *DiscussionHandler) ListDiscussion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing event ID", nil)
		return
	}

	items, err := h.store.Recent(r.Context(), id, h.limit)
	if err != nil {
		log.Printf("[discussion] error loading items for event %s: %v", id, err)
	}
	if items == nil {
		items = []discussion.Item{}
	}

	respondWithJSON(w, http.StatusOK, items)
}
