package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/freight-dispatch/internal/apperr"
	"github.com/ukydev/freight-dispatch/internal/db"
	"github.com/ukydev/freight-dispatch/internal/models"
)

type recoverable[T any] interface {
	*T
	models.Entity
	models.Recoverable
}

// ResourceHandler serves list/create/update/delete/recover for a
// soft-deletable reference collection.
type ResourceHandler[T any, P recoverable[T]] struct {
	name       string
	collection db.RecoverableCollection[T]
	// owns reports whether a stored item belongs to this resource.
	owns func(*T) bool
	// prepare normalizes an item before it is written.
	prepare func(*T)
}

func NewResourceHandler[T any, P recoverable[T]](name string, collection db.RecoverableCollection[T]) *ResourceHandler[T, P] {
	return &ResourceHandler[T, P]{
		name:       name,
		collection: collection,
		owns:       func(*T) bool { return true },
		prepare:    func(*T) {},
	}
}

// NewVehicleHandler serves one vehicle type out of the shared collection.
func NewVehicleHandler(name string, vehicles db.RecoverableCollection[models.Vehicle], vehicleType models.VehicleType) *ResourceHandler[models.Vehicle, *models.Vehicle] {
	h := NewResourceHandler[models.Vehicle, *models.Vehicle](name, vehicles)
	h.owns = func(v *models.Vehicle) bool { return v.Type == vehicleType }
	h.prepare = func(v *models.Vehicle) {
		v.Type = vehicleType
		if vehicleType == models.VehicleTrailer {
			v.Status = ""
		} else if v.Status == "" {
			v.Status = models.VehicleActive
		}
	}
	return h
}

// List returns active items, or deleted ones with ?deleted=true.
func (h *ResourceHandler[T, P]) List(w http.ResponseWriter, r *http.Request) {
	deleted, _ := strconv.ParseBool(r.URL.Query().Get("deleted"))
	items, err := h.collection.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]T, 0, len(items))
	for i := range items {
		item := &items[i]
		if h.owns(item) && P(item).Deleted() == deleted {
			out = append(out, *item)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ResourceHandler[T, P]) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.find(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ResourceHandler[T, P]) Create(w http.ResponseWriter, r *http.Request) {
	var item T
	if err := decodeJSON(r, &item); err != nil {
		writeError(w, err)
		return
	}
	p := P(&item)
	if p.Key() != "" {
		writeError(w, apperr.E(apperr.Validation, "%s ids are assigned by the server", h.name))
		return
	}
	p.SetDeleted(false)
	h.prepare(&item)

	if err := h.collection.Insert(r.Context(), &item); err != nil {
		writeError(w, err)
		return
	}
	log.WithFields(log.Fields{"resource": h.name, "id": p.Key()}).Info("Resource created")
	writeJSON(w, http.StatusCreated, item)
}

func (h *ResourceHandler[T, P]) Update(w http.ResponseWriter, r *http.Request) {
	current, err := h.find(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var item T
	if err := decodeJSON(r, &item); err != nil {
		writeError(w, err)
		return
	}
	p := P(&item)
	id := P(current).Key()
	if err := p.SetKey(id); err != nil {
		writeError(w, apperr.Wrap(apperr.Validation, err, "invalid id"))
		return
	}
	// Deletion is only changed through delete and recover
	p.SetDeleted(P(current).Deleted())
	h.prepare(&item)

	if err := h.collection.Update(r.Context(), id, &item); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ResourceHandler[T, P]) Delete(w http.ResponseWriter, r *http.Request) {
	current, err := h.find(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.collection.SoftDelete(r.Context(), P(current).Key()); err != nil {
		writeError(w, err)
		return
	}
	log.WithFields(log.Fields{"resource": h.name, "id": P(current).Key()}).Info("Resource deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *ResourceHandler[T, P]) Recover(w http.ResponseWriter, r *http.Request) {
	current, err := h.find(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.collection.Recover(r.Context(), P(current).Key()); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Recovered")
}

// find loads the item named by the {id} parameter. Items of another vehicle
// type are reported as missing.
func (h *ResourceHandler[T, P]) find(r *http.Request) (*T, error) {
	id := chi.URLParam(r, "id")
	item, err := h.collection.FindByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !h.owns(item) {
		return nil, apperr.E(apperr.NotFound, "%s %s not found", h.name, id)
	}
	return item, nil
}
