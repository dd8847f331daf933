package db

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ukydev/freight-dispatch/internal/apperr"
	"github.com/ukydev/freight-dispatch/internal/models"
)

// NewMemoryStore returns a Store backed by process memory.
func NewMemoryStore() Store {
	return Store{
		Trips:    NewMemoryTripCollection(),
		Drivers:  NewMemoryRecoverableCollection[models.Driver](),
		Vehicles: NewMemoryRecoverableCollection[models.Vehicle](),
		Clients:  NewMemoryRecoverableCollection[models.Client](),
		DMTIs:    NewMemoryDMTICollection(),
		Users:    NewMemoryUserCollection(),
	}
}

// MemoryCollection keeps entities in insertion order.
type MemoryCollection[T any, P entityPtr[T]] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
}

func NewMemoryCollection[T any, P entityPtr[T]]() *MemoryCollection[T, P] {
	return &MemoryCollection[T, P]{items: make(map[string]T)}
}

func (c *MemoryCollection[T, P]) List(ctx context.Context) ([]T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.items[key])
	}
	return out, nil
}

func (c *MemoryCollection[T, P]) FindByID(ctx context.Context, id string) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	if !ok {
		return nil, apperr.E(apperr.NotFound, "record %s not found", id)
	}
	return &item, nil
}

func (c *MemoryCollection[T, P]) Insert(ctx context.Context, item *T) error {
	p := P(item)
	if p.Key() == "" {
		if err := p.SetKey(primitive.NewObjectID().Hex()); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := p.Key()
	if _, exists := c.items[key]; exists {
		return apperr.E(apperr.Conflict, "record %s already exists", key)
	}
	c.items[key] = *item
	c.order = append(c.order, key)
	return nil
}

func (c *MemoryCollection[T, P]) Update(ctx context.Context, id string, item *T) error {
	if err := P(item).SetKey(id); err != nil {
		return apperr.E(apperr.NotFound, "record %s not found", id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return apperr.E(apperr.NotFound, "record %s not found", id)
	}
	c.items[id] = *item
	return nil
}

func (c *MemoryCollection[T, P]) delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return apperr.E(apperr.NotFound, "record %s not found", id)
	}
	delete(c.items, id)
	for i, key := range c.order {
		if key == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// MemoryRecoverableCollection adds soft deletion to MemoryCollection.
type MemoryRecoverableCollection[T any, P recoverablePtr[T]] struct {
	*MemoryCollection[T, P]
}

func NewMemoryRecoverableCollection[T any, P recoverablePtr[T]]() *MemoryRecoverableCollection[T, P] {
	return &MemoryRecoverableCollection[T, P]{MemoryCollection: NewMemoryCollection[T, P]()}
}

func (c *MemoryRecoverableCollection[T, P]) SoftDelete(ctx context.Context, id string) error {
	return c.setDeleted(id, true)
}

func (c *MemoryRecoverableCollection[T, P]) Recover(ctx context.Context, id string) error {
	return c.setDeleted(id, false)
}

func (c *MemoryRecoverableCollection[T, P]) setDeleted(id string, deleted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[id]
	if !ok {
		return apperr.E(apperr.NotFound, "record %s not found", id)
	}
	P(&item).SetDeleted(deleted)
	c.items[id] = item
	return nil
}

// MemoryDMTICollection stores DMTIs keyed by correlative.
type MemoryDMTICollection struct {
	*MemoryCollection[models.DMTI, *models.DMTI]
}

func NewMemoryDMTICollection() *MemoryDMTICollection {
	return &MemoryDMTICollection{MemoryCollection: NewMemoryCollection[models.DMTI, *models.DMTI]()}
}

func (c *MemoryDMTICollection) Delete(ctx context.Context, id string) error {
	return c.delete(id)
}

// MemoryTripCollection implements TripCollection with a version check under
// a single mutex.
type MemoryTripCollection struct {
	mu    sync.RWMutex
	trips map[string]models.Trip
	order []string
}

func NewMemoryTripCollection() *MemoryTripCollection {
	return &MemoryTripCollection{trips: make(map[string]models.Trip)}
}

func (c *MemoryTripCollection) ListTrips(ctx context.Context) ([]models.Trip, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Trip, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, cloneTrip(c.trips[key]))
	}
	return out, nil
}

func (c *MemoryTripCollection) FindTripByID(ctx context.Context, id string) (*models.Trip, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	trip, ok := c.trips[id]
	if !ok {
		return nil, apperr.E(apperr.NotFound, "trip %s not found", id)
	}
	trip = cloneTrip(trip)
	return &trip, nil
}

func (c *MemoryTripCollection) InsertTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID.IsZero() {
		trip.ID = primitive.NewObjectID()
	}
	trip.Version = 1
	c.mu.Lock()
	defer c.mu.Unlock()
	key := trip.Key()
	if _, exists := c.trips[key]; exists {
		return apperr.E(apperr.Conflict, "trip %s already exists", key)
	}
	c.trips[key] = cloneTrip(*trip)
	c.order = append(c.order, key)
	return nil
}

func (c *MemoryTripCollection) UpdateTrip(ctx context.Context, trip *models.Trip, expectedVersion int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := trip.Key()
	stored, ok := c.trips[key]
	if !ok {
		return apperr.E(apperr.NotFound, "trip %s not found", key)
	}
	if stored.Version != expectedVersion {
		return apperr.E(apperr.Conflict, "trip %s was modified (version %d, expected %d)", key, stored.Version, expectedVersion)
	}
	trip.Version = expectedVersion + 1
	c.trips[key] = cloneTrip(*trip)
	return nil
}

func (c *MemoryTripCollection) SoftDeleteTrip(ctx context.Context, id string) error {
	return c.setDeleted(id, true)
}

func (c *MemoryTripCollection) RecoverTrip(ctx context.Context, id string) error {
	return c.setDeleted(id, false)
}

func (c *MemoryTripCollection) setDeleted(id string, deleted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	trip, ok := c.trips[id]
	if !ok {
		return apperr.E(apperr.NotFound, "trip %s not found", id)
	}
	trip.SetDeleted(deleted)
	trip.Version++
	c.trips[id] = trip
	return nil
}

// cloneTrip copies the assignment and event slices so callers cannot mutate
// stored state. Event payloads are never modified in place.
func cloneTrip(t models.Trip) models.Trip {
	assignments := make([]models.Assignment, len(t.Assignments))
	for i, a := range t.Assignments {
		a.Events = append([]models.Event(nil), a.Events...)
		assignments[i] = a
	}
	t.Assignments = assignments
	return t
}
