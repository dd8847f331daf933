package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Driver is a truck driver that assignments are paid to.
type Driver struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name          string             `json:"name" bson:"name" validate:"required"`
	Contact       string             `json:"contact" bson:"contact"`
	LicenseNumber string             `json:"license_number" bson:"license_number"`
	DUINumber     string             `json:"dui_number" bson:"dui_number"`
	TruckPlate    string             `json:"truck_plate" bson:"truck_plate"`
	Observations  string             `json:"observations" bson:"observations"`
	SoftDelete    `bson:",inline"`
}

func (d *Driver) Key() string { return objectIDKey(d.ID) }

func (d *Driver) SetKey(key string) error {
	id, err := parseObjectIDKey(key)
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}
