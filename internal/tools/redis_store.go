package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "voicebridge:"

// RedisStore is an OrderStore shared by every server instance pointing at
// the same Redis. Ids come from INCR so allocation is atomic across
// processes.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a store on client. An empty prefix uses "voicebridge:".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) counterKey() string {
	return s.prefix + "orders:next_id"
}

func (s *RedisStore) orderKey(id int64) string {
	return s.prefix + "orders:" + strconv.FormatInt(id, 10)
}

// NextOrderID implements OrderStore.
func (s *RedisStore) NextOrderID(ctx context.Context) (int64, error) {
	id, err := s.client.Incr(ctx, s.counterKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate order id: %w", err)
	}
	return id, nil
}

// SaveOrder implements OrderStore.
func (s *RedisStore) SaveOrder(ctx context.Context, order Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	if err := s.client.Set(ctx, s.orderKey(order.OrderID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save order %d: %w", order.OrderID, err)
	}
	return nil
}

// GetOrder implements OrderStore.
func (s *RedisStore) GetOrder(ctx context.Context, id int64) (Order, error) {
	data, err := s.client.Get(ctx, s.orderKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("failed to load order %d: %w", id, err)
	}

	var order Order
	if err := json.Unmarshal(data, &order); err != nil {
		return Order{}, fmt.Errorf("failed to unmarshal order %d: %w", id, err)
	}
	return order, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
