package models

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripQuoted     TripStatus = "quoted"
	TripConfirmed  TripStatus = "confirmed"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripCanceled   TripStatus = "canceled"
)

// IsValid reports whether s is a known status.
func (s TripStatus) IsValid() bool {
	switch s {
	case TripQuoted, TripConfirmed, TripInProgress, TripCompleted, TripCanceled:
		return true
	default:
		return false
	}
}

// CargoType selects which cargo identifier an assignment uses.
type CargoType string

const (
	CargoContainer CargoType = "container"
	CargoLoose     CargoType = "loose_cargo"
)

// InvoiceStatus tracks billing of completed trips.
type InvoiceStatus string

const (
	InvoiceActive   InvoiceStatus = "active"
	InvoiceInvoiced InvoiceStatus = "invoiced"
)

// Assignment is one container or loose load within a trip.
type Assignment struct {
	ID              string  `json:"id" bson:"id"`
	ContainerNumber string  `json:"container_number,omitempty" bson:"container_number,omitempty"`
	MerchandiseType string  `json:"merchandise_type,omitempty" bson:"merchandise_type,omitempty"`
	DriverID        string  `json:"driver_id" bson:"driver_id"`
	TruckID         string  `json:"truck_id" bson:"truck_id"`
	TrailerID       string  `json:"trailer_id" bson:"trailer_id"`
	Cost            float64 `json:"cost" bson:"cost"`                                 // flat freight rate
	DMTICost        float64 `json:"dmti_cost,omitempty" bson:"dmti_cost,omitempty"` // customs declaration service
	Events          []Event `json:"events" bson:"events"`
}

// CargoLabel returns the identifier matching the trip's cargo type.
func (a Assignment) CargoLabel(cargo CargoType) string {
	if cargo == CargoContainer {
		return a.ContainerNumber
	}
	return a.MerchandiseType
}

// SortEvents orders the event log by timestamp, oldest first.
func (a *Assignment) SortEvents() {
	sort.SliceStable(a.Events, func(i, j int) bool {
		return a.Events[i].Timestamp.Before(a.Events[j].Timestamp)
	})
}

// LastEvent returns the event with the latest timestamp.
func (a Assignment) LastEvent() (Event, bool) {
	if len(a.Events) == 0 {
		return Event{}, false
	}
	last := a.Events[0]
	for _, e := range a.Events[1:] {
		if e.Timestamp.After(last.Timestamp) {
			last = e
		}
	}
	return last, true
}

// FirstEvent returns the first event of type t in log order.
func (a Assignment) FirstEvent(t EventType) (Event, bool) {
	for _, e := range a.Events {
		if e.Type == t {
			return e, true
		}
	}
	return Event{}, false
}

// Trip is a shipment / work order.
type Trip struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ServiceOrder  string             `json:"service_order" bson:"service_order"`
	ClientName    string             `json:"client_name" bson:"client_name"`
	Status        TripStatus         `json:"status" bson:"status"`
	CargoType     CargoType          `json:"cargo_type" bson:"cargo_type"`
	BillOfLading  string             `json:"bill_of_lading" bson:"bill_of_lading"`
	ShippingLine  string             `json:"shipping_line" bson:"shipping_line"`
	Origin        string             `json:"origin" bson:"origin"`
	Destination   string             `json:"destination" bson:"destination"`
	WeightKg      float64            `json:"weight_kg" bson:"weight_kg"`
	Assignments   []Assignment       `json:"assignments" bson:"assignments"`
	Demurrage     float64            `json:"demurrage" bson:"demurrage"`     // recomputed on save
	UnhookCost    float64            `json:"unhook_cost" bson:"unhook_cost"` // recomputed on save
	InvoiceStatus InvoiceStatus      `json:"invoice_status,omitempty" bson:"invoice_status,omitempty"`
	SoftDelete    `bson:",inline"`
	Version       int       `json:"version" bson:"version"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

func (t *Trip) Key() string { return objectIDKey(t.ID) }

func (t *Trip) SetKey(key string) error {
	id, err := parseObjectIDKey(key)
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// IsOpen reports whether the trip still holds resources: not deleted, not
// completed and not canceled.
func (t Trip) IsOpen() bool {
	return !t.IsDeleted && t.Status != TripCompleted && t.Status != TripCanceled
}

// IsCompleted reports whether the trip counts for billing reports.
func (t Trip) IsCompleted() bool {
	return !t.IsDeleted && t.Status == TripCompleted
}

// EffectiveInvoiceStatus treats an unset status as Active.
func (t Trip) EffectiveInvoiceStatus() InvoiceStatus {
	if t.InvoiceStatus == "" {
		return InvoiceActive
	}
	return t.InvoiceStatus
}

// FindAssignment returns a pointer into the trip's assignments.
func (t *Trip) FindAssignment(id string) *Assignment {
	for i := range t.Assignments {
		if t.Assignments[i].ID == id {
			return &t.Assignments[i]
		}
	}
	return nil
}
