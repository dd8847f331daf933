// Package app assembles the store, sequence and notifier backends selected
// by configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ukydev/freight-dispatch/internal/config"
	"github.com/ukydev/freight-dispatch/internal/db"
	"github.com/ukydev/freight-dispatch/internal/notify"
	"github.com/ukydev/freight-dispatch/internal/sequence"
)

// RedisKeyPrefix namespaces the keys this service writes to Redis.
const RedisKeyPrefix = "freight:"

// Runtime holds the opened backends. Close releases them in reverse order.
type Runtime struct {
	Store    db.Store
	Orders   *sequence.ServiceOrderGenerator
	Notifier notify.Publisher

	database *mongo.Database
	closers  []func(context.Context) error
}

// OpenStore opens only the configured store.
func OpenStore(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{Notifier: notify.Nop{}}
	if cfg.Store != config.StoreMongo {
		rt.Store = db.NewMemoryStore()
		log.Info("Using in-memory store")
		return rt, nil
	}

	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, client.Disconnect)
	rt.database = client.Database(cfg.MongoDB)
	if err := db.EnsureIndexes(ctx, rt.database); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	rt.Store = db.NewMongoStore(rt.database)
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")
	return rt, nil
}

// Open opens the store, the service-order counter and the notifier.
func Open(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := rt.openSequence(ctx, cfg); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	if cfg.MQTTBroker != "" {
		publisher, err := notify.NewMQTTPublisher(notify.MQTTConfig{
			Broker:      cfg.MQTTBroker,
			ClientID:    "freight-dispatch-" + uuid.NewString()[:8],
			TopicPrefix: cfg.MQTTTopicPrefix,
		})
		if err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
		rt.Notifier = publisher
		rt.closers = append(rt.closers, func(context.Context) error {
			publisher.Close()
			return nil
		})
	}
	return rt, nil
}

// openSequence builds the counter and seeds it with the number of stored
// trips, so a fresh counter never reissues an existing order.
func (rt *Runtime) openSequence(ctx context.Context, cfg *config.Config) error {
	trips, err := rt.Store.Trips.ListTrips(ctx)
	if err != nil {
		return fmt.Errorf("count trips: %w", err)
	}
	seed := int64(len(trips))

	var counter sequence.Counter
	switch cfg.SequenceBackend {
	case config.StoreMongo:
		if rt.database == nil {
			return errors.New("mongo sequence backend requires the mongo store")
		}
		c := &sequence.MongoCounter{Collection: rt.database.Collection(db.CountersCollection), Name: sequence.ServiceOrderKey}
		if err := c.Seed(ctx, seed); err != nil {
			return err
		}
		counter = c
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rt.closers = append(rt.closers, func(context.Context) error { return client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		c := &sequence.RedisCounter{Client: client, Key: RedisKeyPrefix + sequence.ServiceOrderKey}
		if err := c.Seed(ctx, seed); err != nil {
			return err
		}
		counter = c
	default:
		counter = sequence.NewMemoryCounter(seed)
	}
	rt.Orders = sequence.NewServiceOrderGenerator(counter, nil)
	log.WithFields(log.Fields{
		"backend": cfg.SequenceBackend,
		"seed":    seed,
	}).Info("Service order sequence ready")
	return nil
}

// Close releases every opened backend.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
