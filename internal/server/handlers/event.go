// internal/server/handlers/event.go

package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"campusevents/internal/domain/event"
	"campusevents/internal/service/explore"
	"campusevents/internal/service/normalize"
	"campusevents/internal/service/trending"
)

// EventHandler handles event-related HTTP requests
type EventHandler struct {
	catalog  *explore.Catalog
	trending *trending.Aggregator
}

// NewEventHandler creates a new event handler
func NewEventHandler(catalog *explore.Catalog, aggregator *trending.Aggregator) *EventHandler {
	return &EventHandler{
		catalog:  catalog,
		trending: aggregator,
	}
}

// ListEvents returns visible events matching the search text and filter key
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	state := event.FilterState{
		Search: r.URL.Query().Get("search"),
		Key:    event.ParseFilterKey(r.URL.Query().Get("filter")),
	}

	events, err := h.catalog.List(r.Context(), state)
	if err != nil {
		log.Printf("[explore] error listing events: %v", err)
		events = []normalize.View{}
	}

	respondWithJSON(w, http.StatusOK, events)
}

// UpcomingEvents returns the next visible events
func (h *EventHandler) UpcomingEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}

	events, err := h.catalog.Upcoming(r.Context(), limit)
	if err != nil {
		log.Printf("[explore] error listing upcoming events: %v", err)
		events = []normalize.View{}
	}

	respondWithJSON(w, http.StatusOK, events)
}

// TrendingEvents returns the events with the most registrations
func (h *EventHandler) TrendingEvents(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.trending.Top(r.Context()))
}

// GetEvent returns a specific event by ID
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing event ID", nil)
		return
	}

	v, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Event not found", nil)
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to get event", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, v)
}

// SubmitEvent stores a new pending event
func (h *EventHandler) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	var sub event.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	v, err := h.catalog.Submit(r.Context(), sub)
	if err != nil {
		switch {
		case errors.Is(err, event.ErrValidation), errors.Is(err, event.ErrInvalidDate):
			respondWithError(w, http.StatusBadRequest, "Invalid event", err)
		default:
			respondWithMutationError(w, http.StatusInternalServerError, "Failed to submit event", err)
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, v)
}

// JoinEvent registers a user for an event
func (h *EventHandler) JoinEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.catalog.Join(r.Context(), id, req.UserID); err != nil {
		switch {
		case errors.Is(err, event.ErrValidation):
			respondWithError(w, http.StatusBadRequest, "Invalid registration", err)
		case errors.Is(err, event.ErrAlreadyExist):
			respondWithError(w, http.StatusConflict, "Already registered", nil)
		default:
			respondWithMutationError(w, http.StatusInternalServerError, "Failed to join event", err)
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"event_id": id, "user_id": req.UserID})
}
