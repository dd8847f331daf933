package handlers

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/freight-dispatch/internal/db"
)

// DMTIHandler lists and removes customs declarations. Declarations are only
// created by the trip workflow.
type DMTIHandler struct {
	dmtis db.DMTICollection
}

func NewDMTIHandler(dmtis db.DMTICollection) *DMTIHandler {
	return &DMTIHandler{dmtis: dmtis}
}

// List returns declarations, newest first.
func (h *DMTIHandler) List(w http.ResponseWriter, r *http.Request) {
	dmtis, err := h.dmtis.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	sort.SliceStable(dmtis, func(i, j int) bool {
		return dmtis[i].CreatedAt.After(dmtis[j].CreatedAt)
	})
	writeJSON(w, http.StatusOK, dmtis)
}

func (h *DMTIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.dmtis.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	log.WithField("dmti_id", id).Info("DMTI deleted")
	w.WriteHeader(http.StatusNoContent)
}
