package models

import "time"

// DMTIUser is the party that files the customs declaration.
type DMTIUser string

const (
	DMTIUserTransport     DMTIUser = "transporte"
	DMTIUserShippingAgent DMTIUser = "us_naviera"
)

// DMTI is a customs in-transit declaration. Its ID is the generated
// correlative; records are never updated and deleting removes them.
type DMTI struct {
	ID               string    `json:"id" bson:"_id"`
	ClientName       string    `json:"client_name" bson:"client_name"`
	ContainerNumber  string    `json:"container_number" bson:"container_number"`
	RegistrationDate string    `json:"registration_date" bson:"registration_date"` // YYYY-MM-DD
	User             DMTIUser  `json:"user" bson:"user"`
	StartingCustoms  string    `json:"starting_customs" bson:"starting_customs"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
}

func (d *DMTI) Key() string { return d.ID }

func (d *DMTI) SetKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	d.ID = key
	return nil
}
