package engine

import (
	"github.com/ukydev/freight-dispatch/internal/models"
)

// TrailerStatus is the derived availability of a trailer.
type TrailerStatus string

const (
	TrailerAvailable TrailerStatus = "available"
	TrailerInUse     TrailerStatus = "in_use"
)

const (
	notAvailable     = "N/A"
	unspecifiedCargo = "unspecified cargo"
	noEvents         = "no events"
)

// TrailerState describes who, if anyone, holds a trailer.
type TrailerState struct {
	TrailerID    string        `json:"trailer_id"`
	Status       TrailerStatus `json:"status"`
	DriverName   string        `json:"driver_name,omitempty"`
	ServiceOrder string        `json:"service_order,omitempty"`
	Label        string        `json:"label,omitempty"`
}

// TrailerOccupancy maps trailer id to its current state. A trailer is in use
// while an open trip has an assignment on it whose latest event is anything
// other than EmptyReturnEnd. When two open trips claim one trailer the later
// trip in slice order wins.
func TrailerOccupancy(trips []models.Trip, trailers []models.Vehicle, drivers []models.Driver) map[string]TrailerState {
	states := make(map[string]TrailerState, len(trailers))
	for _, t := range trailers {
		if t.IsDeleted || t.Type != models.VehicleTrailer {
			continue
		}
		states[t.Key()] = TrailerState{TrailerID: t.Key(), Status: TrailerAvailable}
	}

	names := driverNames(drivers)
	for _, trip := range trips {
		if !trip.IsOpen() {
			continue
		}
		for _, a := range trip.Assignments {
			if a.TrailerID == "" {
				continue
			}
			last, ok := a.LastEvent()
			if ok && last.Type == models.EventEmptyReturnEnd {
				continue
			}
			eventLabel := noEvents
			if ok {
				eventLabel = last.Type.Label()
			}
			cargo := a.CargoLabel(trip.CargoType)
			if cargo == "" {
				cargo = unspecifiedCargo
			}
			driver, found := names[a.DriverID]
			if !found {
				driver = notAvailable
			}
			states[a.TrailerID] = TrailerState{
				TrailerID:    a.TrailerID,
				Status:       TrailerInUse,
				DriverName:   driver,
				ServiceOrder: trip.ServiceOrder,
				Label:        cargo + " / " + eventLabel,
			}
		}
	}
	return states
}

// FilterTrailers returns the non-deleted trailers matching size and status.
// Empty arguments match everything.
func FilterTrailers(trailers []models.Vehicle, states map[string]TrailerState, size string, status TrailerStatus) []models.Vehicle {
	out := []models.Vehicle{}
	for _, t := range trailers {
		if t.IsDeleted || t.Type != models.VehicleTrailer {
			continue
		}
		if size != "" && t.TrailerSize != size {
			continue
		}
		if status != "" {
			current := TrailerAvailable
			if s, ok := states[t.Key()]; ok {
				current = s.Status
			}
			if current != status {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// driverNames indexes every driver, deleted or not, by key.
func driverNames(drivers []models.Driver) map[string]string {
	names := make(map[string]string, len(drivers))
	for _, d := range drivers {
		names[d.Key()] = d.Name
	}
	return names
}
