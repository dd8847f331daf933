package models

import (
	"strings"
	"time"

	"github.com/ukydev/freight-dispatch/internal/apperr"
)

// EventType is the fixed vocabulary of facts recorded against an assignment.
type EventType string

const (
	EventAssigned             EventType = "assigned"
	EventPortDeparture        EventType = "port_departure"
	EventRefuel               EventType = "refuel"
	EventArrivalAtDestination EventType = "arrival_at_destination"
	EventUnloadingStart       EventType = "unloading_start"
	EventStayStart            EventType = "stay_start"
	EventUnhook               EventType = "unhook"
	EventStayEnd              EventType = "stay_end"
	EventUnloadingEnd         EventType = "unloading_end"
	EventEmptyReturnStart     EventType = "empty_return_start"
	EventEmptyReturnEnd       EventType = "empty_return_end"
	EventMovement             EventType = "movement"
)

var eventLabels = map[EventType]string{
	EventAssigned:             "Assigned",
	EventPortDeparture:        "Port departure",
	EventRefuel:               "Refuel",
	EventArrivalAtDestination: "Arrival at destination",
	EventUnloadingStart:       "Unloading start",
	EventStayStart:            "Stay start",
	EventUnhook:               "Unhook",
	EventStayEnd:              "Stay end",
	EventUnloadingEnd:         "Unloading end",
	EventEmptyReturnStart:     "Empty return start",
	EventEmptyReturnEnd:       "Empty return end",
	EventMovement:             "Movement",
}

// IsValid reports whether t belongs to the event vocabulary.
func (t EventType) IsValid() bool {
	_, ok := eventLabels[t]
	return ok
}

// Label is the human-readable name used in reports.
func (t EventType) Label() string {
	if label, ok := eventLabels[t]; ok {
		return label
	}
	return string(t)
}

// MovementDetails is an ad-hoc payment (per diem, extra run) owed to a driver.
type MovementDetails struct {
	Amount           float64 `json:"amount" bson:"amount"`
	AssignedDriverID string  `json:"assigned_driver_id,omitempty" bson:"assigned_driver_id,omitempty"`
}

// RefuelDetails records a fuel purchase. The cost is always gallons x price.
type RefuelDetails struct {
	Gallons        float64 `json:"gallons" bson:"gallons"`
	PricePerGallon float64 `json:"price_per_gallon" bson:"price_per_gallon"`
	DocumentNumber string  `json:"document_number" bson:"document_number"`
}

// UnhookDetails carries the charge billed for unhooking the trailer.
type UnhookDetails struct {
	Cost float64 `json:"cost" bson:"cost"`
}

// StayStartDetails carries the per-day demurrage rate.
type StayStartDetails struct {
	DemurrageRate float64 `json:"demurrage_rate" bson:"demurrage_rate"`
}

// Event is an immutable timestamped fact. Exactly one payload pointer may be
// set, and only for the type that owns it.
type Event struct {
	Type      EventType `json:"type" bson:"type"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Notes     string    `json:"notes,omitempty" bson:"notes,omitempty"`

	Movement  *MovementDetails  `json:"movement,omitempty" bson:"movement,omitempty"`
	Refuel    *RefuelDetails    `json:"refuel,omitempty" bson:"refuel,omitempty"`
	Unhook    *UnhookDetails    `json:"unhook,omitempty" bson:"unhook,omitempty"`
	StayStart *StayStartDetails `json:"stay_start,omitempty" bson:"stay_start,omitempty"`
}

// NewEvent creates a payload-less event such as Assigned or EmptyReturnEnd.
func NewEvent(t EventType, at time.Time, notes string) Event {
	return Event{Type: t, Timestamp: at, Notes: notes}
}

// NewMovement creates a Movement event. driverID may be empty.
func NewMovement(at time.Time, amount float64, driverID, notes string) Event {
	return Event{
		Type:      EventMovement,
		Timestamp: at,
		Notes:     notes,
		Movement:  &MovementDetails{Amount: amount, AssignedDriverID: driverID},
	}
}

// NewRefuel creates a Refuel event.
func NewRefuel(at time.Time, gallons, pricePerGallon float64, documentNumber, notes string) Event {
	return Event{
		Type:      EventRefuel,
		Timestamp: at,
		Notes:     notes,
		Refuel:    &RefuelDetails{Gallons: gallons, PricePerGallon: pricePerGallon, DocumentNumber: documentNumber},
	}
}

// NewUnhook creates an Unhook event.
func NewUnhook(at time.Time, cost float64, notes string) Event {
	return Event{Type: EventUnhook, Timestamp: at, Notes: notes, Unhook: &UnhookDetails{Cost: cost}}
}

// NewStayStart creates a StayStart event with its demurrage rate.
func NewStayStart(at time.Time, rate float64, notes string) Event {
	return Event{Type: EventStayStart, Timestamp: at, Notes: notes, StayStart: &StayStartDetails{DemurrageRate: rate}}
}

// Validate checks that the payload matches the event type.
func (e Event) Validate() error {
	if !e.Type.IsValid() {
		return apperr.E(apperr.Validation, "unknown event type %q", e.Type)
	}
	if e.Timestamp.IsZero() {
		return apperr.E(apperr.Validation, "event %s requires a timestamp", e.Type)
	}

	payloads := 0
	for _, set := range []bool{e.Movement != nil, e.Refuel != nil, e.Unhook != nil, e.StayStart != nil} {
		if set {
			payloads++
		}
	}
	if payloads > 1 {
		return apperr.E(apperr.Validation, "event %s carries more than one payload", e.Type)
	}

	switch e.Type {
	case EventMovement:
		if e.Movement == nil {
			return apperr.E(apperr.Validation, "movement event requires an amount")
		}
	case EventRefuel:
		if e.Refuel == nil {
			return apperr.E(apperr.Validation, "refuel event requires gallons, price per gallon and document number")
		}
		if strings.TrimSpace(e.Refuel.DocumentNumber) == "" {
			return apperr.E(apperr.Validation, "refuel event requires a document number")
		}
	case EventUnhook:
		if e.Unhook == nil {
			return apperr.E(apperr.Validation, "unhook event requires a cost")
		}
	case EventStayStart:
		if e.StayStart == nil {
			return apperr.E(apperr.Validation, "stay start event requires a demurrage rate")
		}
	default:
		if payloads > 0 {
			return apperr.E(apperr.Validation, "event %s does not take a payload", e.Type)
		}
	}

	if (e.Type != EventMovement && e.Movement != nil) ||
		(e.Type != EventRefuel && e.Refuel != nil) ||
		(e.Type != EventUnhook && e.Unhook != nil) ||
		(e.Type != EventStayStart && e.StayStart != nil) {
		return apperr.E(apperr.Validation, "event %s carries a payload of another type", e.Type)
	}
	return nil
}
