package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// EventPattern matches every auction event channel.
const EventPattern = "auction_events:*"

// Subscriber wraps Redis Pub/Sub functionality
type Subscriber struct {
	client *Client
	pubsub *redis.PubSub
	log    zerolog.Logger
}

// NewSubscriber creates a new Redis Pub/Sub subscriber
func NewSubscriber(client *Client, log zerolog.Logger) *Subscriber {
	return &Subscriber{
		client: client,
		log:    log.With().Str("component", "redis_subscriber").Logger(),
	}
}

// SubscribeToAuction subscribes to events for a single auction.
func (s *Subscriber) SubscribeToAuction(ctx context.Context, auctionID string) error {
	s.pubsub = s.client.rdb.Subscribe(ctx, eventChannel(auctionID))
	_, err := s.pubsub.Receive(ctx)
	return err
}

// SubscribeToPattern subscribes to all auction events using pattern matching
func (s *Subscriber) SubscribeToPattern(ctx context.Context, pattern string) error {
	s.pubsub = s.client.rdb.PSubscribe(ctx, pattern)
	_, err := s.pubsub.Receive(ctx)
	return err
}

// Listen forwards messages to messageChan until ctx is done.
// This is a blocking operation - run in a goroutine
func (s *Subscriber) Listen(ctx context.Context, messageChan chan<- *Message) error {
	if s.pubsub == nil {
		return fmt.Errorf("not subscribed to any channel")
	}

	ch := s.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event map[string]any
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.log.Warn().Err(err).Str("channel", msg.Channel).Msg("failed to parse message")
				continue
			}

			select {
			case messageChan <- &Message{
				AuctionID: auctionIDFromChannel(msg.Channel),
				Payload:   msg.Payload,
				Event:     event,
			}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Message represents a parsed Pub/Sub message
type Message struct {
	AuctionID string
	Payload   string         // Raw JSON payload
	Event     map[string]any // Parsed event data
}

// auctionIDFromChannel extracts the auction ID from a channel name.
// Example: "auction_events:a1" -> "a1"
func auctionIDFromChannel(channel string) string {
	return strings.TrimPrefix(channel, "auction_events:")
}

// Close closes the subscription.
func (s *Subscriber) Close() error {
	if s.pubsub != nil {
		return s.pubsub.Close()
	}
	return nil
}
