// Package reports loads the collections a report needs and runs the engine
// over them. Every call recomputes from the full trip collection.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ukydev/freight-dispatch/internal/db"
	"github.com/ukydev/freight-dispatch/internal/engine"
	"github.com/ukydev/freight-dispatch/internal/models"
)

// Service serves the reports shared by the HTTP API and reportctl.
type Service struct {
	store *db.Store
	now   func() time.Time
}

func NewService(store *db.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

type snapshot struct {
	trips    []models.Trip
	drivers  []models.Driver
	vehicles []models.Vehicle
}

// load reads the requested collections concurrently.
func (s *Service) load(ctx context.Context, drivers, vehicles bool) (snapshot, error) {
	var snap snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		trips, err := s.store.Trips.ListTrips(ctx)
		if err != nil {
			return fmt.Errorf("list trips: %w", err)
		}
		snap.trips = trips
		return nil
	})
	if drivers {
		g.Go(func() error {
			list, err := s.store.Drivers.List(ctx)
			if err != nil {
				return fmt.Errorf("list drivers: %w", err)
			}
			snap.drivers = list
			return nil
		})
	}
	if vehicles {
		g.Go(func() error {
			list, err := s.store.Vehicles.List(ctx)
			if err != nil {
				return fmt.Errorf("list vehicles: %w", err)
			}
			snap.vehicles = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

// TrailerRow is a trailer with its derived occupancy.
type TrailerRow struct {
	Trailer models.Vehicle      `json:"trailer"`
	State   engine.TrailerState `json:"state"`
}

// Trailers lists non-deleted trailers filtered by size and derived status,
// ordered by plate.
func (s *Service) Trailers(ctx context.Context, size string, status engine.TrailerStatus) ([]TrailerRow, error) {
	snap, err := s.load(ctx, true, true)
	if err != nil {
		return nil, err
	}
	states := engine.TrailerOccupancy(snap.trips, snap.vehicles, snap.drivers)
	trailers := engine.FilterTrailers(snap.vehicles, states, size, status)
	sort.SliceStable(trailers, func(i, j int) bool { return trailers[i].Plate < trailers[j].Plate })

	rows := make([]TrailerRow, 0, len(trailers))
	for _, t := range trailers {
		rows = append(rows, TrailerRow{Trailer: t, State: states[t.Key()]})
	}
	return rows, nil
}

func (s *Service) DriverPayments(ctx context.Context, filter engine.PaymentFilter) ([]engine.DriverPayment, error) {
	snap, err := s.load(ctx, true, false)
	if err != nil {
		return nil, err
	}
	return engine.DriverPayments(snap.trips, snap.drivers, filter), nil
}

func (s *Service) DriverDetail(ctx context.Context, driverID string, r engine.DateRange) (engine.DriverDetails, error) {
	snap, err := s.load(ctx, true, false)
	if err != nil {
		return engine.DriverDetails{}, err
	}
	return engine.DriverDetail(snap.trips, snap.drivers, driverID, r)
}

// ProfitabilityReport is the per-trip breakdown plus its totals.
type ProfitabilityReport struct {
	Trips  []engine.TripProfitability  `json:"trips"`
	Totals engine.ProfitabilitySummary `json:"totals"`
}

func (s *Service) Profitability(ctx context.Context, r engine.DateRange) (ProfitabilityReport, error) {
	snap, err := s.load(ctx, false, false)
	if err != nil {
		return ProfitabilityReport{}, err
	}
	rows := engine.Profitability(snap.trips, r)
	return ProfitabilityReport{Trips: rows, Totals: engine.ProfitabilityTotals(rows)}, nil
}

// DemurrageAlert names a trip that has waited at destination past the grace
// period without a stay being opened.
type DemurrageAlert struct {
	TripID       string `json:"trip_id"`
	ServiceOrder string `json:"service_order"`
	ClientName   string `json:"client_name"`
}

func (s *Service) DemurrageAlerts(ctx context.Context) ([]DemurrageAlert, error) {
	snap, err := s.load(ctx, false, false)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Trip, len(snap.trips))
	for _, t := range snap.trips {
		byID[t.Key()] = t
	}
	ids := engine.DemurrageAlerts(snap.trips, s.now())
	alerts := make([]DemurrageAlert, 0, len(ids))
	for _, id := range ids {
		t := byID[id]
		alerts = append(alerts, DemurrageAlert{TripID: id, ServiceOrder: t.ServiceOrder, ClientName: t.ClientName})
	}
	return alerts, nil
}

// TruckFuel is the fuel a truck took this month.
type TruckFuel struct {
	TruckID string  `json:"truck_id"`
	Plate   string  `json:"plate"`
	Gallons float64 `json:"gallons"`
}

// MonthlyFuel lists gallons per truck for the current month, most first.
func (s *Service) MonthlyFuel(ctx context.Context) ([]TruckFuel, error) {
	snap, err := s.load(ctx, false, true)
	if err != nil {
		return nil, err
	}
	plates := make(map[string]string, len(snap.vehicles))
	for _, v := range snap.vehicles {
		plates[v.Key()] = v.Plate
	}
	fuel := engine.MonthlyFuelByTruck(snap.trips, s.now())
	rows := make([]TruckFuel, 0, len(fuel))
	for id, gallons := range fuel {
		plate, ok := plates[id]
		if !ok {
			plate = "N/A"
		}
		rows = append(rows, TruckFuel{TruckID: id, Plate: plate, Gallons: gallons})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Gallons != rows[j].Gallons {
			return rows[i].Gallons > rows[j].Gallons
		}
		return rows[i].TruckID < rows[j].TruckID
	})
	return rows, nil
}

func (s *Service) WorkOrders(ctx context.Context) ([]engine.ClientWorkOrders, error) {
	snap, err := s.load(ctx, false, false)
	if err != nil {
		return nil, err
	}
	return engine.WorkOrdersByClient(snap.trips), nil
}

func (s *Service) Dashboard(ctx context.Context) (engine.DashboardStats, error) {
	snap, err := s.load(ctx, false, false)
	if err != nil {
		return engine.DashboardStats{}, err
	}
	return engine.Dashboard(snap.trips, s.now()), nil
}
