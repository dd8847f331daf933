package main

import (
	"context"
	"math/rand"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/freight-dispatch/internal/auth"
	"github.com/ukydev/freight-dispatch/internal/db"
	"github.com/ukydev/freight-dispatch/internal/dispatch"
	"github.com/ukydev/freight-dispatch/internal/handlers"
	"github.com/ukydev/freight-dispatch/internal/models"
	"github.com/ukydev/freight-dispatch/internal/notify"
	"github.com/ukydev/freight-dispatch/internal/reports"
	"github.com/ukydev/freight-dispatch/internal/sequence"
)

func newServer(t *testing.T) (*httptest.Server, *db.Store) {
	t.Helper()
	store := db.NewMemoryStore()
	authService, err := auth.NewService("simulator-secret", time.Hour)
	require.NoError(t, err)
	require.NoError(t, authService.EnsureAdmin(context.Background(), store.Users, "administrador", "sim-password"))

	orders := sequence.NewServiceOrderGenerator(sequence.NewMemoryCounter(0), time.Now)
	router := handlers.NewRouter(handlers.RouterConfig{
		Store:    &store,
		Auth:     authService,
		Dispatch: dispatch.NewService(&store, orders, notify.Nop{}),
		Reports:  reports.NewService(&store, time.Now),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, &store
}

func TestRunCompletesTrips(t *testing.T) {
	server, store := newServer(t)

	cfg := simConfig{
		APIBaseURL: server.URL + "/api",
		Username:   "administrador",
		Password:   "sim-password",
		Trips:      2,
		Tick:       time.Millisecond,
		Seed:       7,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, run(ctx, cfg))

	trips, err := store.Trips.ListTrips(context.Background())
	require.NoError(t, err)
	require.Len(t, trips, 2)
	for _, trip := range trips {
		assert.Equal(t, models.TripCompleted, trip.Status)
		assert.Equal(t, models.InvoiceActive, trip.InvoiceStatus)
		require.Len(t, trip.Assignments, 1)
		events := trip.Assignments[0].Events
		require.Len(t, events, len(lifecycle))
		_, refuelled := trip.Assignments[0].FirstEvent(models.EventRefuel)
		assert.True(t, refuelled)
	}

	drivers, err := store.Drivers.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, drivers, 3)
}

func TestRunStopsOnCancel(t *testing.T) {
	server, store := newServer(t)

	cfg := simConfig{
		APIBaseURL: server.URL + "/api",
		Username:   "administrador",
		Password:   "sim-password",
		Trips:      1,
		Tick:       time.Hour,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	require.Eventually(t, func() bool {
		trips, err := store.Trips.ListTrips(context.Background())
		return err == nil && len(trips) == 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("simulation did not stop")
	}
}

func TestRunRejectsBadCredentials(t *testing.T) {
	server, _ := newServer(t)

	err := run(context.Background(), simConfig{
		APIBaseURL: server.URL + "/api",
		Username:   "administrador",
		Password:   "wrong",
		Trips:      1,
		Tick:       time.Second,
	})
	require.Error(t, err)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
}

func TestRunConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  simConfig
	}{
		{"no trips", simConfig{Trips: 0, Tick: time.Second}},
		{"no tick", simConfig{Trips: 1}},
		{"no credentials", simConfig{Trips: 1, Tick: time.Second}},
		{"missing fixture", simConfig{Trips: 1, Tick: time.Second, Password: "x", Fixture: "/does/not/exist.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, run(context.Background(), tt.cfg))
		})
	}
}

func TestNextEvent(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	at := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)

	e, ok := nextEvent(models.Assignment{}, rnd, at)
	require.True(t, ok)
	assert.Equal(t, models.EventAssigned, e.Type)

	a := models.Assignment{Events: []models.Event{
		models.NewEvent(models.EventAssigned, at.Add(-2*time.Hour), ""),
		models.NewEvent(models.EventPortDeparture, at.Add(-time.Hour), ""),
	}}
	e, ok = nextEvent(a, rnd, at)
	require.True(t, ok)
	assert.Equal(t, models.EventRefuel, e.Type)
	require.NotNil(t, e.Refuel)
	assert.NoError(t, e.Validate())
	assert.GreaterOrEqual(t, e.Refuel.Gallons, 20.0)

	a.Events = append(a.Events, models.NewEvent(models.EventEmptyReturnEnd, at, ""))
	_, ok = nextEvent(a, rnd, at.Add(time.Minute))
	assert.False(t, ok)
}

func TestLoadFixture(t *testing.T) {
	fx, err := loadFixture("")
	require.NoError(t, err)
	assert.Len(t, fx.Drivers, 3)
	assert.Equal(t, "40ft", fx.Trailers[0].Size)
	assert.Equal(t, 45.0, fx.Clients[0].DMTIFee)

	dir := t.TempDir()
	custom := filepath.Join(dir, "fleet.yaml")
	require.NoError(t, os.WriteFile(custom, []byte(`
drivers: [{name: Ana}]
trucks: [C-1]
trailers: [{plate: RE-1, size: 20ft}]
clients: [{name: Acme, freight: 100}]
routes: [{origin: A, destination: B, cost: 90}]
`), 0o600))
	fx, err = loadFixture(custom)
	require.NoError(t, err)
	assert.Equal(t, "Ana", fx.Drivers[0].Name)
	assert.Equal(t, 90.0, fx.Routes[0].Cost)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("drivers: []\n"), 0o600))
	_, err = loadFixture(empty)
	assert.EqualError(t, err, "fixture has no drivers")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("drivers: [\n"), 0o600))
	_, err = loadFixture(broken)
	assert.Error(t, err)
}

func TestDraftFromTripKeepsAssignments(t *testing.T) {
	at := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	trip := &models.Trip{
		ClientName: "Acme",
		Status:     models.TripInProgress,
		CargoType:  models.CargoContainer,
		Assignments: []models.Assignment{{
			ID:              "a1",
			ContainerNumber: "MSCU1",
			DriverID:        "d1",
			Cost:            300,
			Events:          []models.Event{models.NewEvent(models.EventAssigned, at, "")},
		}},
	}

	d := draftFromTrip(trip)
	assert.Equal(t, dispatch.ProcessTrip, d.ProcessType)
	require.Len(t, d.Assignments, 1)
	assert.Equal(t, "a1", d.Assignments[0].ID)
	assert.Equal(t, 300.0, d.Assignments[0].Cost)
	assert.Len(t, d.Assignments[0].Events, 1)
}
