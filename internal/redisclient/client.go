package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const productTTL = 5 * time.Minute

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client used as a product-snapshot cache.
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

// GetProduct returns the cached product snapshot, or (nil, nil) on a miss.
func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	raw, err := c.rdb.Get(ctx, productKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p models.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode cached product: %w", err)
	}
	return &p, nil
}

// SetProduct caches a product snapshot with a short TTL. Stock shown from
// the cache is advisory; reservations always go against the database.
func (c *Client) SetProduct(ctx context.Context, p *models.Product) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, productKey(p.ID), raw, productTTL).Err()
}

// DeleteProducts drops cached snapshots after a write or stock mutation.
func (c *Client) DeleteProducts(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}
