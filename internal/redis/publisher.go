package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/danwhitston/auction-api/internal/models"
)

// Publisher publishes auction events to Redis Pub/Sub.
// The broadcast service picks them up for real-time WebSocket updates.
type Publisher struct {
	client *Client
}

// NewPublisher creates a Redis Pub/Sub publisher.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish sends the event on the auction's channel.
func (p *Publisher) Publish(ctx context.Context, event *models.AuctionEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.client.rdb.Publish(ctx, eventChannel(event.AuctionID), eventJSON).Err()
}
