package db

import (
	"context"

	"github.com/ukydev/freight-dispatch/internal/models"
)

// Collection defines the operations every stored entity supports.
type Collection[T any] interface {
	List(ctx context.Context) ([]T, error)
	FindByID(ctx context.Context, id string) (*T, error)
	// Insert stores item, assigning a key when it has none.
	Insert(ctx context.Context, item *T) error
	Update(ctx context.Context, id string, item *T) error
}

// RecoverableCollection is implemented for entities that are soft-deleted.
type RecoverableCollection[T any] interface {
	Collection[T]
	SoftDelete(ctx context.Context, id string) error
	Recover(ctx context.Context, id string) error
}

// DMTICollection stores customs declarations, which are removed outright.
type DMTICollection interface {
	Collection[models.DMTI]
	Delete(ctx context.Context, id string) error
}

// TripCollection defines the interface for trip data operations. Writes are
// guarded by the trip version.
type TripCollection interface {
	ListTrips(ctx context.Context) ([]models.Trip, error)
	FindTripByID(ctx context.Context, id string) (*models.Trip, error)
	// InsertTrip stores a new trip at version 1.
	InsertTrip(ctx context.Context, trip *models.Trip) error
	// UpdateTrip replaces the trip if the stored version equals
	// expectedVersion and bumps trip.Version on success.
	UpdateTrip(ctx context.Context, trip *models.Trip, expectedVersion int) error
	SoftDeleteTrip(ctx context.Context, id string) error
	RecoverTrip(ctx context.Context, id string) error
}

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string) error
}

// Store bundles the repositories the service works against. Trucks and
// trailers share the vehicle collection and are told apart by Vehicle.Type.
type Store struct {
	Trips    TripCollection
	Drivers  RecoverableCollection[models.Driver]
	Vehicles RecoverableCollection[models.Vehicle]
	Clients  RecoverableCollection[models.Client]
	DMTIs    DMTICollection
	Users    UserCollection
}

type entityPtr[T any] interface {
	*T
	models.Entity
}

type recoverablePtr[T any] interface {
	*T
	models.Entity
	models.Recoverable
}
