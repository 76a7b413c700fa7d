package sequence

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type CounterStore interface {
	NextCounter(ctx context.Context, name string) (int64, error)
	CurrentCounter(ctx context.Context, name string) (int64, error)
	SeedCounter(ctx context.Context, name string, floor int64) error
}

// StoreCounter keeps the counter in the primary repository.
type StoreCounter struct {
	store CounterStore
	name  string
}

func NewStoreCounter(store CounterStore, name string) *StoreCounter {
	return &StoreCounter{store: store, name: name}
}

func (c *StoreCounter) Next(ctx context.Context) (int64, error) {
	return c.store.NextCounter(ctx, c.name)
}

func (c *StoreCounter) Current(ctx context.Context) (int64, error) {
	return c.store.CurrentCounter(ctx, c.name)
}

func (c *StoreCounter) Seed(ctx context.Context, floor int64) error {
	return c.store.SeedCounter(ctx, c.name, floor)
}

// RedisCounter backs the counter with INCR on a single key.
type RedisCounter struct {
	client *redis.Client
	key    string
}

func NewRedisCounter(client *redis.Client, name string) *RedisCounter {
	return &RedisCounter{client: client, key: "opticpos:counter:" + name}
}

func (c *RedisCounter) Next(ctx context.Context) (int64, error) {
	return c.client.Incr(ctx, c.key).Result()
}

func (c *RedisCounter) Current(ctx context.Context) (int64, error) {
	raw, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse counter %s: %w", c.key, err)
	}
	return n, nil
}

// Seed only initialises a key that does not exist yet.
func (c *RedisCounter) Seed(ctx context.Context, floor int64) error {
	return c.client.SetNX(ctx, c.key, floor, 0).Err()
}
