package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// CompanySize buckets clients by size.
type CompanySize string

const (
	CompanySmall  CompanySize = "small"
	CompanyMedium CompanySize = "medium"
	CompanyLarge  CompanySize = "large"
)

// Client is a customer company. Freight and DMTIFee are the default rates
// copied onto new assignments.
type Client struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	BusinessName     string             `json:"business_name" bson:"business_name" validate:"required"`
	TaxID            string             `json:"tax_id" bson:"tax_id"`
	BusinessActivity string             `json:"business_activity" bson:"business_activity"`
	CompanySize      CompanySize        `json:"company_size" bson:"company_size"`
	Phone            string             `json:"phone" bson:"phone"`
	Email            string             `json:"email" bson:"email" validate:"omitempty,email"`
	ReferencePerson  string             `json:"reference_person" bson:"reference_person"`
	Freight          float64            `json:"freight,omitempty" bson:"freight,omitempty" validate:"gte=0"`
	DMTIFee          float64            `json:"dmti_fee,omitempty" bson:"dmti_fee,omitempty" validate:"gte=0"`
	SoftDelete       `bson:",inline"`
}

func (c *Client) Key() string { return objectIDKey(c.ID) }

func (c *Client) SetKey(key string) error {
	id, err := parseObjectIDKey(key)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}
