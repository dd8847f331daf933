package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/freight-dispatch/internal/apperr"
	"github.com/ukydev/freight-dispatch/internal/models"
)

func TestMemoryRecoverableCollection_Lifecycle(t *testing.T) {
	ctx := context.Background()
	drivers := NewMemoryRecoverableCollection[models.Driver]()

	d := &models.Driver{Name: "Juan Pérez"}
	require.NoError(t, drivers.Insert(ctx, d))
	require.NotEmpty(t, d.Key())

	found, err := drivers.FindByID(ctx, d.Key())
	require.NoError(t, err)
	assert.Equal(t, "Juan Pérez", found.Name)

	found.Contact = "555-0101"
	require.NoError(t, drivers.Update(ctx, d.Key(), found))

	require.NoError(t, drivers.SoftDelete(ctx, d.Key()))
	found, err = drivers.FindByID(ctx, d.Key())
	require.NoError(t, err)
	assert.True(t, found.IsDeleted)
	assert.Equal(t, "555-0101", found.Contact)

	require.NoError(t, drivers.Recover(ctx, d.Key()))
	list, err := drivers.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsDeleted)
}

func TestMemoryRecoverableCollection_UnknownID(t *testing.T) {
	ctx := context.Background()
	clients := NewMemoryRecoverableCollection[models.Client]()

	tests := []struct {
		name string
		op   func() error
	}{
		{"find", func() error { _, err := clients.FindByID(ctx, "507f1f77bcf86cd799439011"); return err }},
		{"update", func() error {
			return clients.Update(ctx, "507f1f77bcf86cd799439011", &models.Client{BusinessName: "x"})
		}},
		{"soft delete", func() error { return clients.SoftDelete(ctx, "507f1f77bcf86cd799439011") }},
		{"recover", func() error { return clients.Recover(ctx, "missing") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, apperr.NotFound, apperr.KindOf(tt.op()))
		})
	}
}

func TestMemoryDMTICollection_Delete(t *testing.T) {
	ctx := context.Background()
	dmtis := NewMemoryDMTICollection()

	require.NoError(t, dmtis.Insert(ctx, &models.DMTI{ID: "2025ACAJUTLASV0234700428", ClientName: "Acme"}))
	err := dmtis.Insert(ctx, &models.DMTI{ID: "2025ACAJUTLASV0234700428"})
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	require.NoError(t, dmtis.Delete(ctx, "2025ACAJUTLASV0234700428"))
	list, err := dmtis.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Equal(t, apperr.NotFound, apperr.KindOf(dmtis.Delete(ctx, "2025ACAJUTLASV0234700428")))
}

func TestMemoryTripCollection_OptimisticConcurrency(t *testing.T) {
	ctx := context.Background()
	trips := NewMemoryTripCollection()

	trip := &models.Trip{ServiceOrder: "IPS0001TT2025", Status: models.TripConfirmed, CreatedAt: time.Now()}
	require.NoError(t, trips.InsertTrip(ctx, trip))
	assert.Equal(t, 1, trip.Version)

	first, err := trips.FindTripByID(ctx, trip.Key())
	require.NoError(t, err)
	second, err := trips.FindTripByID(ctx, trip.Key())
	require.NoError(t, err)

	first.ClientName = "Acme"
	require.NoError(t, trips.UpdateTrip(ctx, first, 1))
	assert.Equal(t, 2, first.Version)

	second.ClientName = "Globex"
	err = trips.UpdateTrip(ctx, second, 1)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	stored, err := trips.FindTripByID(ctx, trip.Key())
	require.NoError(t, err)
	assert.Equal(t, "Acme", stored.ClientName)
}

func TestMemoryTripCollection_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	trips := NewMemoryTripCollection()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	trip := &models.Trip{Assignments: []models.Assignment{{ID: "a1", Events: []models.Event{models.NewEvent(models.EventAssigned, at, "")}}}}
	require.NoError(t, trips.InsertTrip(ctx, trip))

	loaded, err := trips.FindTripByID(ctx, trip.Key())
	require.NoError(t, err)
	loaded.Assignments[0].Events[0].Type = models.EventEmptyReturnEnd

	again, err := trips.FindTripByID(ctx, trip.Key())
	require.NoError(t, err)
	assert.Equal(t, models.EventAssigned, again.Assignments[0].Events[0].Type)
}

func TestMemoryTripCollection_SoftDeleteAndRecover(t *testing.T) {
	ctx := context.Background()
	trips := NewMemoryTripCollection()
	trip := &models.Trip{ServiceOrder: "IPS0002TT2025"}
	require.NoError(t, trips.InsertTrip(ctx, trip))

	require.NoError(t, trips.SoftDeleteTrip(ctx, trip.Key()))
	stored, err := trips.FindTripByID(ctx, trip.Key())
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted)
	assert.Equal(t, 2, stored.Version)

	require.NoError(t, trips.RecoverTrip(ctx, trip.Key()))
	stored, err = trips.FindTripByID(ctx, trip.Key())
	require.NoError(t, err)
	assert.False(t, stored.IsDeleted)

	assert.Equal(t, apperr.NotFound, apperr.KindOf(trips.SoftDeleteTrip(ctx, "nope")))
}
