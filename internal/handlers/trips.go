package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ukydev/freight-dispatch/internal/apperr"
	"github.com/ukydev/freight-dispatch/internal/db"
	"github.com/ukydev/freight-dispatch/internal/dispatch"
	"github.com/ukydev/freight-dispatch/internal/engine"
	"github.com/ukydev/freight-dispatch/internal/models"
)

// TripHandler serves the trip collection. Writes go through the dispatch
// workflow; reads hit the collection directly.
type TripHandler struct {
	trips   db.TripCollection
	service *dispatch.Service
}

func NewTripHandler(trips db.TripCollection, service *dispatch.Service) *TripHandler {
	return &TripHandler{trips: trips, service: service}
}

// List returns trips matching ?q=, newest first. ?deleted=true lists the
// recycle bin instead.
func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	deleted, _ := strconv.ParseBool(r.URL.Query().Get("deleted"))
	trips, err := h.trips.ListTrips(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, engine.SearchTrips(trips, r.URL.Query().Get("q"), deleted))
}

func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	trip, err := h.trips.FindTripByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *TripHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft dispatch.TripDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, err)
		return
	}
	trip, err := h.service.Create(r.Context(), draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

// updateTripRequest carries the version the client last read.
type updateTripRequest struct {
	Version int `json:"version" validate:"required,gte=1"`
	dispatch.TripDraft
}

func (h *TripHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateTripRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	trip, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.TripDraft, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *TripHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TripHandler) Recover(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Recover(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Trip recovered")
}

func (h *TripHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	trip, err := h.service.MarkInvoiced(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

type appendEventRequest struct {
	Version int          `json:"version" validate:"required,gte=1"`
	Event   models.Event `json:"event"`
}

func (h *TripHandler) AppendEvent(w http.ResponseWriter, r *http.Request) {
	var req appendEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Event.Type == "" {
		writeError(w, apperr.E(apperr.Validation, "event type is required"))
		return
	}
	trip, err := h.service.AppendEvent(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "assignmentID"), req.Event, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}
