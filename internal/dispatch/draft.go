package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ukydev/freight-dispatch/internal/apperr"
	"github.com/ukydev/freight-dispatch/internal/engine"
	"github.com/ukydev/freight-dispatch/internal/models"
	"github.com/ukydev/freight-dispatch/internal/sequence"
)

// ProcessType selects whether saving a new trip also files DMTI declarations.
type ProcessType string

const (
	ProcessTrip ProcessType = "trip"
	ProcessDMTI ProcessType = "dmti"
)

// DMTIDraft is the declaration data captured per container of a DMTI process.
type DMTIDraft struct {
	RegistrationDate string          `json:"registration_date"` // YYYY-MM-DD, defaults to today
	StartingCustoms  string          `json:"starting_customs"`
	User             models.DMTIUser `json:"user" validate:"omitempty,oneof=transporte us_naviera"`
}

// AssignmentDraft is an assignment as submitted by a caller. An empty ID gets
// a fresh uuid.
type AssignmentDraft struct {
	ID              string         `json:"id"`
	ContainerNumber string         `json:"container_number"`
	MerchandiseType string         `json:"merchandise_type"`
	DriverID        string         `json:"driver_id"`
	TruckID         string         `json:"truck_id"`
	TrailerID       string         `json:"trailer_id"`
	Cost            float64        `json:"cost" validate:"gte=0"`
	DMTICost        float64        `json:"dmti_cost" validate:"gte=0"`
	Events          []models.Event `json:"events"`
	DMTI            *DMTIDraft     `json:"dmti,omitempty"`
}

// TripDraft is the full editable state of a trip. Updates replace the stored
// trip with it; server-owned fields are kept.
type TripDraft struct {
	ProcessType  ProcessType       `json:"process_type" validate:"omitempty,oneof=trip dmti"`
	ClientName   string            `json:"client_name"`
	Status       models.TripStatus `json:"status" validate:"omitempty,oneof=quoted confirmed in_progress completed canceled"`
	CargoType    models.CargoType  `json:"cargo_type" validate:"omitempty,oneof=container loose_cargo"`
	BillOfLading string            `json:"bill_of_lading"`
	ShippingLine string            `json:"shipping_line"`
	Origin       string            `json:"origin"`
	Destination  string            `json:"destination"`
	WeightKg     float64           `json:"weight_kg" validate:"gte=0"`
	Assignments  []AssignmentDraft `json:"assignments" validate:"required,min=1,dive"`
}

var validate = validator.New()

// check runs the structural rules and the event payload rules.
func (d *TripDraft) check() error {
	if err := validate.Struct(d); err != nil {
		return validationError(err)
	}
	for i, a := range d.Assignments {
		for _, e := range a.Events {
			if err := e.Validate(); err != nil {
				return fmt.Errorf("assignment %d: %w", i+1, err)
			}
		}
	}
	return nil
}

// checkDMTI enforces the extra requirements of a DMTI process.
func (d *TripDraft) checkDMTI() error {
	if strings.TrimSpace(d.ClientName) == "" {
		return apperr.E(apperr.Validation, "a DMTI process requires a client")
	}
	for i, a := range d.Assignments {
		if strings.TrimSpace(a.ContainerNumber) == "" {
			return apperr.E(apperr.Validation, "assignment %d: a DMTI process requires a container number", i+1)
		}
		if a.DMTI == nil || sequence.CustomsCode(a.DMTI.StartingCustoms) == "" {
			return apperr.E(apperr.Validation, "assignment %d: a DMTI process requires the starting customs", i+1)
		}
		if date := a.DMTI.RegistrationDate; date != "" {
			if _, err := time.Parse(engine.DateLayout, date); err != nil {
				return apperr.E(apperr.Validation, "assignment %d: invalid DMTI registration date %q", i+1, date)
			}
		}
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.Validation, err, "invalid trip")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return apperr.E(apperr.Validation, "invalid trip: %s", strings.Join(msgs, "; "))
}
