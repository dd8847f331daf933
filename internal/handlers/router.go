package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/ukydev/freight-dispatch/internal/auth"
	"github.com/ukydev/freight-dispatch/internal/db"
	"github.com/ukydev/freight-dispatch/internal/dispatch"
	"github.com/ukydev/freight-dispatch/internal/middleware"
	"github.com/ukydev/freight-dispatch/internal/models"
	"github.com/ukydev/freight-dispatch/internal/reports"
)

// RouterConfig carries everything the API needs.
type RouterConfig struct {
	Store       *db.Store
	Auth        *auth.Service
	Dispatch    *dispatch.Service
	Reports     *reports.Service
	Production  bool
	RateLimit   int
	RateWindow  time.Duration
	HandlerTime time.Duration
}

// NewRouter wires the middleware stack and every route.
func NewRouter(cfg RouterConfig) http.Handler {
	authMW := middleware.NewAuthMiddleware(cfg.Auth)
	if cfg.HandlerTime <= 0 {
		cfg.HandlerTime = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecureHeaders(cfg.Production))
	r.Use(middleware.RequestLogger)
	if cfg.RateLimit > 0 {
		r.Use(httprate.Limit(cfg.RateLimit, cfg.RateWindow,
			httprate.WithKeyFuncs(httprate.KeyByRealIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			}),
		))
	}
	r.Use(chimw.Timeout(cfg.HandlerTime))

	r.Get("/health", Health)

	authHandler := NewAuthHandler(cfg.Auth, cfg.Store.Users)
	trips := NewTripHandler(cfg.Store.Trips, cfg.Dispatch)
	drivers := NewResourceHandler[models.Driver, *models.Driver]("driver", cfg.Store.Drivers)
	clients := NewResourceHandler[models.Client, *models.Client]("client", cfg.Store.Clients)
	trucks := NewVehicleHandler("truck", cfg.Store.Vehicles, models.VehicleTruck)
	trailers := NewVehicleHandler("trailer", cfg.Store.Vehicles, models.VehicleTrailer)
	dmtis := NewDMTIHandler(cfg.Store.DMTIs)
	reportHandler := NewReportHandler(cfg.Reports)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMW.Authenticate)

		r.Post("/auth/login", authHandler.Login)
		r.Get("/auth/profile", authHandler.GetProfile)
		r.Post("/auth/password", authHandler.ChangePassword)

		r.Route("/users", func(r chi.Router) {
			r.Use(authMW.RequireAdmin)
			r.Get("/", authHandler.ListUsers)
			r.Post("/", authHandler.CreateUser)
			r.Put("/{id}/permissions", authHandler.UpdatePermissions)
		})

		r.Route("/trips", func(r chi.Router) {
			can := permissions(authMW, models.ResourceTrips)
			r.With(can(models.ActionView)).Get("/", trips.List)
			r.With(can(models.ActionCreate)).Post("/", trips.Create)
			r.With(can(models.ActionView)).Get("/{id}", trips.Get)
			r.With(can(models.ActionEdit)).Put("/{id}", trips.Update)
			r.With(can(models.ActionDelete)).Delete("/{id}", trips.Delete)
			r.With(can(models.ActionDelete)).Post("/{id}/recover", trips.Recover)
			r.With(can(models.ActionEdit)).Post("/{id}/assignments/{assignmentID}/events", trips.AppendEvent)
			r.With(permissions(authMW, models.ResourceWorkOrders)(models.ActionEdit)).Post("/{id}/invoice", trips.Invoice)
		})

		mountResource(r, authMW, models.ResourceDrivers, drivers)
		mountResource(r, authMW, models.ResourceClients, clients)
		mountResource(r, authMW, models.ResourceTrucks, trucks)
		mountResource(r, authMW, models.ResourceTrailers, trailers)

		r.Route(models.ResourceDMTIs, func(r chi.Router) {
			can := permissions(authMW, models.ResourceDMTIs)
			r.With(can(models.ActionView)).Get("/", dmtis.List)
			r.With(can(models.ActionDelete)).Delete("/{id}", dmtis.Delete)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(authMW.RequirePermission(models.ResourceReports, models.ActionView))
			r.Get("/trailers", reportHandler.Trailers)
			r.Get("/driver-payments", reportHandler.DriverPayments)
			r.Get("/driver-payments/{driverID}", reportHandler.DriverDetail)
			r.Get("/profitability", reportHandler.Profitability)
			r.Get("/demurrage-alerts", reportHandler.DemurrageAlerts)
			r.Get("/fuel", reportHandler.Fuel)
			r.With(authMW.RequirePermission(models.ResourceWorkOrders, models.ActionView)).Get("/work-orders", reportHandler.WorkOrders)
			r.Get("/dashboard", reportHandler.Dashboard)
		})
	})

	return r
}

type resourceRoutes interface {
	List(http.ResponseWriter, *http.Request)
	Get(http.ResponseWriter, *http.Request)
	Create(http.ResponseWriter, *http.Request)
	Update(http.ResponseWriter, *http.Request)
	Delete(http.ResponseWriter, *http.Request)
	Recover(http.ResponseWriter, *http.Request)
}

func mountResource(r chi.Router, authMW *middleware.AuthMiddleware, resource string, h resourceRoutes) {
	r.Route(resource, func(r chi.Router) {
		can := permissions(authMW, resource)
		r.With(can(models.ActionView)).Get("/", h.List)
		r.With(can(models.ActionCreate)).Post("/", h.Create)
		r.With(can(models.ActionView)).Get("/{id}", h.Get)
		r.With(can(models.ActionEdit)).Put("/{id}", h.Update)
		r.With(can(models.ActionDelete)).Delete("/{id}", h.Delete)
		r.With(can(models.ActionDelete)).Post("/{id}/recover", h.Recover)
	})
}

func permissions(authMW *middleware.AuthMiddleware, resource string) func(models.PermissionAction) func(http.Handler) http.Handler {
	return func(action models.PermissionAction) func(http.Handler) http.Handler {
		return authMW.RequirePermission(resource, action)
	}
}

// Health reports liveness
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
