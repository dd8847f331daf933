package engine

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ukydev/freight-dispatch/internal/models"
)

var base = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func at(hours int) time.Time { return base.Add(time.Duration(hours) * time.Hour) }

func newDriver(id, name string) models.Driver {
	d := models.Driver{Name: name}
	_ = d.SetKey(id)
	return d
}

func newTrailer(id, size string) models.Vehicle {
	v := models.Vehicle{Plate: "RE-" + id[len(id)-3:], Type: models.VehicleTrailer, TrailerSize: size}
	_ = v.SetKey(id)
	return v
}

func newTrip(status models.TripStatus, updated time.Time, assignments ...models.Assignment) models.Trip {
	return models.Trip{
		ID:          primitive.NewObjectID(),
		Status:      status,
		CargoType:   models.CargoContainer,
		Assignments: assignments,
		CreatedAt:   updated,
		UpdatedAt:   updated,
	}
}

const (
	juanID   = "65f000000000000000000001"
	carlosID = "65f000000000000000000002"
	luisID   = "65f000000000000000000003"

	trailerA = "65f0000000000000000000a1"
	trailerB = "65f0000000000000000000a2"
)

func testDrivers() []models.Driver {
	return []models.Driver{
		newDriver(juanID, "Juan Pérez"),
		newDriver(carlosID, "Carlos Gomez"),
		newDriver(luisID, "Luis Martinez"),
	}
}
