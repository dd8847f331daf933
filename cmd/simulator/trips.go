package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/freight-dispatch/internal/dispatch"
	"github.com/ukydev/freight-dispatch/internal/models"
)

// fleet holds the reference records created from a fixture.
type fleet struct {
	drivers  []models.Driver
	trucks   []models.Vehicle
	trailers []models.Vehicle
	clients  []models.Client
}

func seedFleet(ctx context.Context, c *apiClient, fx *fixture) (*fleet, error) {
	fl := &fleet{}
	for _, d := range fx.Drivers {
		in := models.Driver{Name: d.Name, Contact: d.Contact, LicenseNumber: d.License}
		var out models.Driver
		if err := c.do(ctx, http.MethodPost, models.ResourceDrivers, in, &out); err != nil {
			return nil, fmt.Errorf("create driver %s: %w", d.Name, err)
		}
		fl.drivers = append(fl.drivers, out)
	}
	for _, plate := range fx.Trucks {
		in := models.Vehicle{Plate: plate, Status: models.VehicleActive}
		var out models.Vehicle
		if err := c.do(ctx, http.MethodPost, models.ResourceTrucks, in, &out); err != nil {
			return nil, fmt.Errorf("create truck %s: %w", plate, err)
		}
		fl.trucks = append(fl.trucks, out)
	}
	for _, t := range fx.Trailers {
		in := models.Vehicle{Plate: t.Plate, TrailerType: t.Type, TrailerSize: t.Size}
		var out models.Vehicle
		if err := c.do(ctx, http.MethodPost, models.ResourceTrailers, in, &out); err != nil {
			return nil, fmt.Errorf("create trailer %s: %w", t.Plate, err)
		}
		fl.trailers = append(fl.trailers, out)
	}
	for _, cl := range fx.Clients {
		in := models.Client{BusinessName: cl.Name, TaxID: cl.TaxID, Freight: cl.Freight, DMTIFee: cl.DMTIFee}
		var out models.Client
		if err := c.do(ctx, http.MethodPost, models.ResourceClients, in, &out); err != nil {
			return nil, fmt.Errorf("create client %s: %w", cl.Name, err)
		}
		fl.clients = append(fl.clients, out)
	}

	log.WithFields(log.Fields{
		"drivers":  len(fl.drivers),
		"trucks":   len(fl.trucks),
		"trailers": len(fl.trailers),
		"clients":  len(fl.clients),
	}).Info("Seeded reference data")
	return fl, nil
}

// newTripDraft builds the i-th in-progress container trip. Resources rotate
// through the fleet so consecutive trips use different drivers and trailers.
func newTripDraft(i int, fl *fleet, fx *fixture, rnd *rand.Rand, now time.Time) dispatch.TripDraft {
	route := fx.Routes[i%len(fx.Routes)]
	client := fl.clients[i%len(fl.clients)]
	cost := route.Cost
	if client.Freight > 0 {
		cost = client.Freight
	}
	return dispatch.TripDraft{
		ProcessType:  dispatch.ProcessTrip,
		ClientName:   client.BusinessName,
		Status:       models.TripInProgress,
		CargoType:    models.CargoContainer,
		BillOfLading: fmt.Sprintf("BL%08d", rnd.Intn(100000000)),
		ShippingLine: route.ShippingLine,
		Origin:       route.Origin,
		Destination:  route.Destination,
		WeightKg:     float64(8000 + rnd.Intn(18000)),
		Assignments: []dispatch.AssignmentDraft{{
			ContainerNumber: fmt.Sprintf("SIMU%07d", rnd.Intn(10000000)),
			DriverID:        fl.drivers[i%len(fl.drivers)].Key(),
			TruckID:         fl.trucks[i%len(fl.trucks)].Key(),
			TrailerID:       fl.trailers[i%len(fl.trailers)].Key(),
			Cost:            cost,
			Events:          []models.Event{models.NewEvent(models.EventAssigned, now, "")},
		}},
	}
}

func createTrip(ctx context.Context, c *apiClient, d dispatch.TripDraft) (*models.Trip, error) {
	var trip models.Trip
	if err := c.do(ctx, http.MethodPost, models.ResourceTrips, d, &trip); err != nil {
		return nil, fmt.Errorf("create trip for %s: %w", d.ClientName, err)
	}
	log.WithFields(log.Fields{
		"trip_id":       trip.Key(),
		"service_order": trip.ServiceOrder,
		"client":        trip.ClientName,
	}).Info("Created trip")
	return &trip, nil
}

// lifecycle is the order in which the simulator records assignment events.
var lifecycle = []models.EventType{
	models.EventAssigned,
	models.EventPortDeparture,
	models.EventRefuel,
	models.EventArrivalAtDestination,
	models.EventUnloadingStart,
	models.EventUnloadingEnd,
	models.EventEmptyReturnStart,
	models.EventEmptyReturnEnd,
}

// nextEvent returns the event that follows the assignment's latest one, or
// false once the empty return has ended.
func nextEvent(a models.Assignment, rnd *rand.Rand, at time.Time) (models.Event, bool) {
	last, ok := a.LastEvent()
	if !ok {
		return models.NewEvent(models.EventAssigned, at, ""), true
	}
	pos := -1
	for i, t := range lifecycle {
		if t == last.Type {
			pos = i
			break
		}
	}
	if pos < 0 || pos == len(lifecycle)-1 {
		return models.Event{}, false
	}

	next := lifecycle[pos+1]
	if next == models.EventRefuel {
		gallons := round2(20 + rnd.Float64()*40)
		return models.NewRefuel(at, gallons, 4.25, fmt.Sprintf("CCF-%06d", rnd.Intn(1000000)), ""), true
	}
	return models.NewEvent(next, at, ""), true
}

// advance records one event on the first assignment still in progress. When
// every assignment has returned empty the trip is marked completed and done
// is true.
func advance(ctx context.Context, c *apiClient, trip *models.Trip, rnd *rand.Rand, now time.Time) (*models.Trip, bool, error) {
	for _, a := range trip.Assignments {
		e, ok := nextEvent(a, rnd, now)
		if !ok {
			continue
		}
		var updated models.Trip
		path := fmt.Sprintf("%s/%s/assignments/%s/events", models.ResourceTrips, trip.Key(), a.ID)
		body := map[string]any{"version": trip.Version, "event": e}
		if err := c.do(ctx, http.MethodPost, path, body, &updated); err != nil {
			return nil, false, fmt.Errorf("append %s to %s: %w", e.Type, trip.ServiceOrder, err)
		}
		log.WithFields(log.Fields{
			"service_order": trip.ServiceOrder,
			"assignment_id": a.ID,
			"event":         e.Type,
		}).Debug("Appended event")
		return &updated, false, nil
	}

	d := draftFromTrip(trip)
	d.Status = models.TripCompleted
	var completed models.Trip
	body := struct {
		Version int `json:"version"`
		dispatch.TripDraft
	}{trip.Version, d}
	if err := c.do(ctx, http.MethodPut, models.ResourceTrips+"/"+trip.Key(), body, &completed); err != nil {
		return nil, false, fmt.Errorf("complete %s: %w", trip.ServiceOrder, err)
	}
	log.WithFields(log.Fields{
		"service_order": completed.ServiceOrder,
		"demurrage":     completed.Demurrage,
		"unhook_cost":   completed.UnhookCost,
	}).Info("Trip completed")
	return &completed, true, nil
}

// draftFromTrip converts a stored trip back into an editable draft.
func draftFromTrip(trip *models.Trip) dispatch.TripDraft {
	d := dispatch.TripDraft{
		ProcessType:  dispatch.ProcessTrip,
		ClientName:   trip.ClientName,
		Status:       trip.Status,
		CargoType:    trip.CargoType,
		BillOfLading: trip.BillOfLading,
		ShippingLine: trip.ShippingLine,
		Origin:       trip.Origin,
		Destination:  trip.Destination,
		WeightKg:     trip.WeightKg,
	}
	for _, a := range trip.Assignments {
		d.Assignments = append(d.Assignments, dispatch.AssignmentDraft{
			ID:              a.ID,
			ContainerNumber: a.ContainerNumber,
			MerchandiseType: a.MerchandiseType,
			DriverID:        a.DriverID,
			TruckID:         a.TruckID,
			TrailerID:       a.TrailerID,
			Cost:            a.Cost,
			DMTICost:        a.DMTICost,
			Events:          a.Events,
		})
	}
	return d
}
