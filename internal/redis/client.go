package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis client shared by the store, publisher and sweep lock.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies the connection.
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Wrap adapts an existing go-redis client.
func Wrap(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func auctionKey(id string) string { return "auction:" + id }
func itemKey(id string) string    { return "item:" + id }

const (
	// openIndexKey is a sorted set of open auction IDs scored by closing time (unix ms).
	openIndexKey = "auctions:open"
	// allIndexKey is a sorted set of every auction ID scored by closing time (unix ms).
	allIndexKey = "auctions:all"
	// itemIndexKey is a sorted set of every item ID scored by creation time (unix ms).
	itemIndexKey = "items:all"
)

func eventChannel(auctionID string) string { return "auction_events:" + auctionID }
