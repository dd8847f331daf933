package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/freight-dispatch/internal/db"
	"github.com/ukydev/freight-dispatch/internal/dispatch"
	"github.com/ukydev/freight-dispatch/internal/engine"
	"github.com/ukydev/freight-dispatch/internal/models"
	"github.com/ukydev/freight-dispatch/internal/notify"
	"github.com/ukydev/freight-dispatch/internal/reports"
	"github.com/ukydev/freight-dispatch/internal/sequence"
)

var apiClock = time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)

type apiFixture struct {
	server *httptest.Server
	store  db.Store
	admin  string
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := db.NewMemoryStore()
	authService := newTestAuthService(t)
	require.NoError(t, authService.EnsureAdmin(context.Background(), store.Users, "administrador", "admin-password"))

	now := func() time.Time { return apiClock }
	orders := sequence.NewServiceOrderGenerator(sequence.NewMemoryCounter(0), now)
	router := NewRouter(RouterConfig{
		Store:    &store,
		Auth:     authService,
		Dispatch: dispatch.NewService(&store, orders, notify.Nop{}, dispatch.WithClock(now)),
		Reports:  reports.NewService(&store, now),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	f := &apiFixture{server: server, store: store}
	f.admin = f.login(t, "administrador", "admin-password")
	return f
}

func (f *apiFixture) login(t *testing.T, username, password string) string {
	t.Helper()
	var resp models.LoginResponse
	status := f.do(t, "", http.MethodPost, "/api/auth/login", models.LoginRequest{Username: username, Password: password}, &resp)
	require.Equal(t, http.StatusOK, status)
	return resp.Token
}

// do sends a JSON request and decodes the response into out when given.
func (f *apiFixture) do(t *testing.T, token, method, path string, body, out any) int {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, f.server.URL+path, jsonBody(t, body))
	} else {
		req, err = http.NewRequest(method, f.server.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	f := newAPI(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, f.do(t, "", http.MethodGet, "/health", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRateLimitPerClient(t *testing.T) {
	store := db.NewMemoryStore()
	router := NewRouter(RouterConfig{
		Store:      &store,
		Auth:       newTestAuthService(t),
		RateLimit:  2,
		RateWindow: time.Minute,
	})

	get := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = ip + ":40000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, get("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, get("10.0.0.1").Code)
	limited := get("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, limited.Body.String())

	assert.Equal(t, http.StatusOK, get("10.0.0.2").Code)
}

func TestAPIRequiresToken(t *testing.T) {
	f := newAPI(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, "", http.MethodGet, "/api/trips", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, f.do(t, "garbage", http.MethodGet, "/api/trips", nil, nil))
}

func TestTripLifecycleOverHTTP(t *testing.T) {
	f := newAPI(t)

	var driver models.Driver
	require.Equal(t, http.StatusCreated, f.do(t, f.admin, http.MethodPost, "/api/drivers", models.Driver{Name: "Juan Pérez"}, &driver))
	var trailer models.Vehicle
	require.Equal(t, http.StatusCreated, f.do(t, f.admin, http.MethodPost, "/api/trailers", models.Vehicle{Plate: "RE-101", TrailerSize: "40ft"}, &trailer))
	assert.Equal(t, models.VehicleTrailer, trailer.Type)

	draft := dispatch.TripDraft{
		ClientName: "Importadora Central",
		CargoType:  models.CargoContainer,
		Assignments: []dispatch.AssignmentDraft{{
			ContainerNumber: "MSCU1234567",
			DriverID:        driver.Key(),
			TrailerID:       trailer.Key(),
			Cost:            500,
			Events:          []models.Event{models.NewEvent(models.EventAssigned, apiClock.Add(-time.Hour), "")},
		}},
	}
	var trip models.Trip
	require.Equal(t, http.StatusCreated, f.do(t, f.admin, http.MethodPost, "/api/trips", draft, &trip))
	assert.Equal(t, "IPS0001TT2025", trip.ServiceOrder)

	var occupancy []reports.TrailerRow
	require.Equal(t, http.StatusOK, f.do(t, f.admin, http.MethodGet, "/api/reports/trailers?status=in_use", nil, &occupancy))
	require.Len(t, occupancy, 1)
	assert.Equal(t, "Juan Pérez", occupancy[0].State.DriverName)

	asgPath := fmt.Sprintf("/api/trips/%s/assignments/%s/events", trip.Key(), trip.Assignments[0].ID)
	event := appendEventRequest{Version: trip.Version, Event: models.NewEvent(models.EventEmptyReturnEnd, apiClock, "")}
	require.Equal(t, http.StatusCreated, f.do(t, f.admin, http.MethodPost, asgPath, event, &trip))
	assert.Equal(t, 2, trip.Version)

	// Replaying the same version is rejected
	assert.Equal(t, http.StatusConflict, f.do(t, f.admin, http.MethodPost, asgPath, event, nil))

	draft.Assignments[0].ID = trip.Assignments[0].ID
	draft.Assignments[0].Events = trip.Assignments[0].Events
	draft.Status = models.TripCompleted
	update := updateTripRequest{Version: trip.Version, TripDraft: draft}
	require.Equal(t, http.StatusOK, f.do(t, f.admin, http.MethodPut, "/api/trips/"+trip.Key(), update, &trip))
	assert.Equal(t, models.InvoiceActive, trip.InvoiceStatus)

	var payments []engine.DriverPayment
	require.Equal(t, http.StatusOK, f.do(t, f.admin, http.MethodGet, "/api/reports/driver-payments?from=2025-05-01&to=2025-05-31", nil, &payments))
	require.Len(t, payments, 1)
	assert.Equal(t, 500.0, payments[0].TotalPayment)

	require.Equal(t, http.StatusOK, f.do(t, f.admin, http.MethodPost, "/api/trips/"+trip.Key()+"/invoice", nil, &trip))
	assert.Equal(t, models.InvoiceInvoiced, trip.InvoiceStatus)

	require.Equal(t, http.StatusNoContent, f.do(t, f.admin, http.MethodDelete, "/api/trips/"+trip.Key(), nil, nil))
	var deleted []models.Trip
	require.Equal(t, http.StatusOK, f.do(t, f.admin, http.MethodGet, "/api/trips?deleted=true", nil, &deleted))
	assert.Len(t, deleted, 1)
	require.Equal(t, http.StatusOK, f.do(t, f.admin, http.MethodPost, "/api/trips/"+trip.Key()+"/recover", nil, nil))

	var active []models.Trip
	require.Equal(t, http.StatusOK, f.do(t, f.admin, http.MethodGet, "/api/trips?q=mscu1234", nil, &active))
	assert.Len(t, active, 1)
}

func TestTripValidationErrors(t *testing.T) {
	f := newAPI(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, f.admin, http.MethodPost, "/api/trips", dispatch.TripDraft{ClientName: "x"}, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, f.admin, http.MethodGet, "/api/trips/65f0000000000000000000ff", nil, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, f.admin, http.MethodGet, "/api/reports/profitability?from=yesterday", nil, nil))
}

func TestPermissionsAreEnforced(t *testing.T) {
	f := newAPI(t)
	user := models.CreateUserRequest{
		Username:    "consulta",
		Password:    "consulta-123",
		Permissions: models.Permissions{models.ResourceTrips: {models.ActionView}},
	}
	require.Equal(t, http.StatusCreated, f.do(t, f.admin, http.MethodPost, "/api/users", user, nil))
	token := f.login(t, "consulta", "consulta-123")

	assert.Equal(t, http.StatusOK, f.do(t, token, http.MethodGet, "/api/trips", nil, nil))
	assert.Equal(t, http.StatusForbidden, f.do(t, token, http.MethodPost, "/api/trips", dispatch.TripDraft{}, nil))
	assert.Equal(t, http.StatusForbidden, f.do(t, token, http.MethodGet, "/api/reports/dashboard", nil, nil))
	assert.Equal(t, http.StatusForbidden, f.do(t, token, http.MethodGet, "/api/users", nil, nil))

	var profile models.User
	require.Equal(t, http.StatusOK, f.do(t, token, http.MethodGet, "/api/auth/profile", nil, &profile))
	assert.Equal(t, "consulta", profile.Username)
}

func TestVehicleTypesAreSeparate(t *testing.T) {
	f := newAPI(t)
	var truck models.Vehicle
	require.Equal(t, http.StatusCreated, f.do(t, f.admin, http.MethodPost, "/api/trucks", models.Vehicle{Plate: "C-900"}, &truck))
	assert.Equal(t, models.VehicleActive, truck.Status)

	assert.Equal(t, http.StatusNotFound, f.do(t, f.admin, http.MethodGet, "/api/trailers/"+truck.Key(), nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, f.admin, http.MethodDelete, "/api/trailers/"+truck.Key(), nil, nil))

	var trailers []models.Vehicle
	require.Equal(t, http.StatusOK, f.do(t, f.admin, http.MethodGet, "/api/trailers", nil, &trailers))
	assert.Empty(t, trailers)

	truck.Status = models.VehicleMaintenance
	require.Equal(t, http.StatusOK, f.do(t, f.admin, http.MethodPut, "/api/trucks/"+truck.Key(), truck, &truck))
	assert.Equal(t, models.VehicleMaintenance, truck.Status)

	require.Equal(t, http.StatusNoContent, f.do(t, f.admin, http.MethodDelete, "/api/trucks/"+truck.Key(), nil, nil))
	var deleted []models.Vehicle
	require.Equal(t, http.StatusOK, f.do(t, f.admin, http.MethodGet, "/api/trucks?deleted=true", nil, &deleted))
	assert.Len(t, deleted, 1)
}

func TestResourceValidation(t *testing.T) {
	f := newAPI(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, f.admin, http.MethodPost, "/api/clients", models.Client{Email: "not-an-email", BusinessName: "Acme"}, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, f.admin, http.MethodPost, "/api/drivers", models.Driver{}, nil))
}

func TestDMTIRoutes(t *testing.T) {
	f := newAPI(t)
	draft := dispatch.TripDraft{
		ProcessType: dispatch.ProcessDMTI,
		ClientName:  "Importadora Central",
		Assignments: []dispatch.AssignmentDraft{{
			ContainerNumber: "MSCU7654321",
			Cost:            200,
			DMTI:            &dispatch.DMTIDraft{RegistrationDate: "2025-05-20", StartingCustoms: "Acajutla"},
		}},
	}
	require.Equal(t, http.StatusCreated, f.do(t, f.admin, http.MethodPost, "/api/trips", draft, nil))

	var dmtis []models.DMTI
	require.Equal(t, http.StatusOK, f.do(t, f.admin, http.MethodGet, "/api/dmtis", nil, &dmtis))
	require.Len(t, dmtis, 1)
	assert.Equal(t, "2025AcajutlaSV0234700428", dmtis[0].ID)

	require.Equal(t, http.StatusNoContent, f.do(t, f.admin, http.MethodDelete, "/api/dmtis/"+dmtis[0].ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, f.admin, http.MethodDelete, "/api/dmtis/"+dmtis[0].ID, nil, nil))
}
