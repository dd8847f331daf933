package sequence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Counter hands out strictly increasing integers. Next must be atomic: two
// concurrent callers never receive the same value.
type Counter interface {
	Next(ctx context.Context) (int64, error)
}

// MemoryCounter is a process-local counter.
type MemoryCounter struct {
	mu    sync.Mutex
	value int64
}

// NewMemoryCounter returns a counter whose first Next returns start+1.
func NewMemoryCounter(start int64) *MemoryCounter {
	return &MemoryCounter{value: start}
}

func (c *MemoryCounter) Next(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value++
	return c.value, nil
}

type counterDoc struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// MongoCounter keeps the sequence in a document of the counters collection.
type MongoCounter struct {
	Collection *mongo.Collection
	Name       string
}

func (c *MongoCounter) Next(ctx context.Context) (int64, error) {
	if c.Collection == nil {
		return 0, errors.New("mongo collection is nil")
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc counterDoc
	err := c.Collection.FindOneAndUpdate(ctx,
		bson.M{"_id": c.Name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", c.Name, err)
	}
	return doc.Value, nil
}

// Seed raises the stored value to at least start. It never lowers it.
func (c *MongoCounter) Seed(ctx context.Context, start int64) error {
	_, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": c.Name},
		bson.M{"$max": bson.M{"value": start}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("seed counter %s: %w", c.Name, err)
	}
	return nil
}

// RedisCounter uses INCR on a single key.
type RedisCounter struct {
	Client redis.Cmdable
	Key    string
}

func (c *RedisCounter) Next(ctx context.Context) (int64, error) {
	v, err := c.Client.Incr(ctx, c.Key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", c.Key, err)
	}
	return v, nil
}

// Seed sets the key to start unless it already exists.
func (c *RedisCounter) Seed(ctx context.Context, start int64) error {
	if err := c.Client.SetNX(ctx, c.Key, start, 0).Err(); err != nil {
		return fmt.Errorf("seed %s: %w", c.Key, err)
	}
	return nil
}
