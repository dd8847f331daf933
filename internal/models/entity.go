package models

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidKey is returned by SetKey when the key cannot address the entity.
var ErrInvalidKey = errors.New("invalid entity key")

// Entity is a stored document addressed by a string key.
type Entity interface {
	Key() string
	SetKey(key string) error
}

// Recoverable marks entities that are soft-deleted instead of removed.
// Types embedding SoftDelete satisfy it through their pointer.
type Recoverable interface {
	Deleted() bool
	SetDeleted(deleted bool)
}

// SoftDelete carries the deletion flag for recoverable entities.
type SoftDelete struct {
	IsDeleted bool `json:"is_deleted" bson:"is_deleted"`
}

func (s *SoftDelete) Deleted() bool           { return s.IsDeleted }
func (s *SoftDelete) SetDeleted(deleted bool) { s.IsDeleted = deleted }

func objectIDKey(id primitive.ObjectID) string {
	if id.IsZero() {
		return ""
	}
	return id.Hex()
}

func parseObjectIDKey(key string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(key)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidKey
	}
	return id, nil
}
