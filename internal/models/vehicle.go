package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleType distinguishes tractor units from trailers.
type VehicleType string

const (
	VehicleTruck   VehicleType = "truck"
	VehicleTrailer VehicleType = "trailer"
)

// VehicleStatus is the operational status of a truck.
type VehicleStatus string

const (
	VehicleActive       VehicleStatus = "active"
	VehicleMaintenance  VehicleStatus = "maintenance"
	VehicleOutOfService VehicleStatus = "out_of_service"
)

// Vehicle represents a truck or trailer of the fleet.
type Vehicle struct {
	ID                  primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Plate               string             `json:"plate" bson:"plate" validate:"required"`
	Type                VehicleType        `json:"type" bson:"type"`
	TrailerType         string             `json:"trailer_type,omitempty" bson:"trailer_type,omitempty"` // "container", "flatbed"
	TrailerSize         string             `json:"trailer_size,omitempty" bson:"trailer_size,omitempty"` // "40ft", "20ft"
	// Status applies to trucks only.
	Status              VehicleStatus      `json:"status,omitempty" bson:"status,omitempty" validate:"omitempty,oneof=active maintenance out_of_service"`
	LastMaintenanceDate *time.Time         `json:"last_maintenance_date,omitempty" bson:"last_maintenance_date,omitempty"`
	SoftDelete          `bson:",inline"`
}

func (v *Vehicle) Key() string { return objectIDKey(v.ID) }

func (v *Vehicle) SetKey(key string) error {
	id, err := parseObjectIDKey(key)
	if err != nil {
		return err
	}
	v.ID = id
	return nil
}
