package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ukydev/freight-dispatch/internal/apperr"
	"github.com/ukydev/freight-dispatch/internal/models"
)

// Collection names used in the database.
const (
	TripsCollection    = "trips"
	DriversCollection  = "drivers"
	VehiclesCollection = "vehicles"
	ClientsCollection  = "clients"
	DMTIsCollection    = "dmtis"
	UsersCollection    = "users"
	CountersCollection = "counters"
)

var errNilCollection = errors.New("mongo collection is nil")

// ConnectMongo connects to MongoDB and verifies the connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	// Ping to verify connection
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// NewMongoStore returns a Store backed by database.
func NewMongoStore(database *mongo.Database) Store {
	return Store{
		Trips:    &MongoTripCollection{Collection: database.Collection(TripsCollection)},
		Drivers:  &MongoRecoverableCollection[models.Driver, *models.Driver]{MongoCollection: MongoCollection[models.Driver, *models.Driver]{Collection: database.Collection(DriversCollection)}},
		Vehicles: &MongoRecoverableCollection[models.Vehicle, *models.Vehicle]{MongoCollection: MongoCollection[models.Vehicle, *models.Vehicle]{Collection: database.Collection(VehiclesCollection)}},
		Clients:  &MongoRecoverableCollection[models.Client, *models.Client]{MongoCollection: MongoCollection[models.Client, *models.Client]{Collection: database.Collection(ClientsCollection)}},
		DMTIs:    &MongoDMTICollection{MongoCollection: MongoCollection[models.DMTI, *models.DMTI]{Collection: database.Collection(DMTIsCollection), StringKeys: true}},
		Users:    &MongoUserCollection{Collection: database.Collection(UsersCollection)},
	}
}

// EnsureIndexes creates the indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	_, err := database.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	_, err = database.Collection(TripsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "service_order", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create trips indexes: %w", err)
	}
	return nil
}

// MongoCollection wraps a MongoDB collection holding entities of type T.
// Keys are ObjectID hex strings unless StringKeys is set.
type MongoCollection[T any, P entityPtr[T]] struct {
	Collection *mongo.Collection
	StringKeys bool
}

func (c *MongoCollection[T, P]) idFilter(id string) (bson.M, error) {
	if c.StringKeys {
		return bson.M{"_id": id}, nil
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.E(apperr.NotFound, "record %s not found", id)
	}
	return bson.M{"_id": objectID}, nil
}

func (c *MongoCollection[T, P]) List(ctx context.Context) ([]T, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	cursor, err := c.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MongoCollection[T, P]) FindByID(ctx context.Context, id string) (*T, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	filter, err := c.idFilter(id)
	if err != nil {
		return nil, err
	}
	var item T
	err = c.Collection.FindOne(ctx, filter).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Wrap(apperr.NotFound, err, "record "+id+" not found")
		}
		return nil, err
	}
	return &item, nil
}

func (c *MongoCollection[T, P]) Insert(ctx context.Context, item *T) error {
	if c.Collection == nil {
		return errNilCollection
	}
	p := P(item)
	if p.Key() == "" {
		if err := p.SetKey(primitive.NewObjectID().Hex()); err != nil {
			return err
		}
	}
	_, err := c.Collection.InsertOne(ctx, item)
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Wrap(apperr.Conflict, err, "record "+p.Key()+" already exists")
	}
	return err
}

func (c *MongoCollection[T, P]) Update(ctx context.Context, id string, item *T) error {
	if c.Collection == nil {
		return errNilCollection
	}
	filter, err := c.idFilter(id)
	if err != nil {
		return err
	}
	if err := P(item).SetKey(id); err != nil {
		return err
	}
	result, err := c.Collection.ReplaceOne(ctx, filter, item)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.E(apperr.NotFound, "record %s not found", id)
	}
	return nil
}

// MongoRecoverableCollection soft-deletes by flipping is_deleted.
type MongoRecoverableCollection[T any, P recoverablePtr[T]] struct {
	MongoCollection[T, P]
}

func (c *MongoRecoverableCollection[T, P]) SoftDelete(ctx context.Context, id string) error {
	return c.setDeleted(ctx, id, true)
}

func (c *MongoRecoverableCollection[T, P]) Recover(ctx context.Context, id string) error {
	return c.setDeleted(ctx, id, false)
}

func (c *MongoRecoverableCollection[T, P]) setDeleted(ctx context.Context, id string, deleted bool) error {
	if c.Collection == nil {
		return errNilCollection
	}
	filter, err := c.idFilter(id)
	if err != nil {
		return err
	}
	result, err := c.Collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"is_deleted": deleted}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.E(apperr.NotFound, "record %s not found", id)
	}
	return nil
}

// MongoDMTICollection removes DMTIs on delete.
type MongoDMTICollection struct {
	MongoCollection[models.DMTI, *models.DMTI]
}

func (c *MongoDMTICollection) Delete(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection
	}
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return apperr.E(apperr.NotFound, "dmti %s not found", id)
	}
	return nil
}

// MongoTripCollection implements TripCollection. Updates filter on
// {_id, version} so concurrent writers cannot overwrite each other.
type MongoTripCollection struct {
	Collection *mongo.Collection
}

// ListTrips returns every trip, deleted ones included, in creation order.
func (c *MongoTripCollection) ListTrips(ctx context.Context) ([]models.Trip, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := c.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	trips := []models.Trip{}
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, err
	}
	return trips, nil
}

// FindTripByID finds a trip by its ID.
func (c *MongoTripCollection) FindTripByID(ctx context.Context, id string) (*models.Trip, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.E(apperr.NotFound, "trip %s not found", id)
	}
	var trip models.Trip
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&trip)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Wrap(apperr.NotFound, err, "trip "+id+" not found")
		}
		return nil, err
	}
	return &trip, nil
}

// InsertTrip inserts a trip record into the collection.
func (c *MongoTripCollection) InsertTrip(ctx context.Context, trip *models.Trip) error {
	if c.Collection == nil {
		return errNilCollection
	}
	if trip.ID.IsZero() {
		trip.ID = primitive.NewObjectID()
	}
	trip.Version = 1
	_, err := c.Collection.InsertOne(ctx, trip)
	return err
}

// UpdateTrip replaces a trip when its stored version matches.
func (c *MongoTripCollection) UpdateTrip(ctx context.Context, trip *models.Trip, expectedVersion int) error {
	if c.Collection == nil {
		return errNilCollection
	}
	next := *trip
	next.Version = expectedVersion + 1
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": trip.ID, "version": expectedVersion}, next)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return c.missOrConflict(ctx, trip.ID, expectedVersion)
	}
	trip.Version = next.Version
	return nil
}

func (c *MongoTripCollection) missOrConflict(ctx context.Context, id primitive.ObjectID, expectedVersion int) error {
	n, err := c.Collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.E(apperr.NotFound, "trip %s not found", id.Hex())
	}
	return apperr.E(apperr.Conflict, "trip %s was modified (expected version %d)", id.Hex(), expectedVersion)
}

func (c *MongoTripCollection) SoftDeleteTrip(ctx context.Context, id string) error {
	return c.setDeleted(ctx, id, true)
}

func (c *MongoTripCollection) RecoverTrip(ctx context.Context, id string) error {
	return c.setDeleted(ctx, id, false)
}

func (c *MongoTripCollection) setDeleted(ctx context.Context, id string, deleted bool) error {
	if c.Collection == nil {
		return errNilCollection
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.E(apperr.NotFound, "trip %s not found", id)
	}
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"is_deleted": deleted}, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.E(apperr.NotFound, "trip %s not found", id)
	}
	return nil
}
