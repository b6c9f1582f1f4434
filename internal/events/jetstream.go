package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/danwhitston/auction-api/internal/models"
)

const (
	// StreamName is the JetStream stream holding auction events.
	StreamName = "AUCTION_EVENTS"
	// SubjectPattern matches every auction's event subject.
	SubjectPattern = "auction.events.*"
)

// Subject returns the subject for an auction's events: "auction.events.{auctionID}".
func Subject(auctionID string) string {
	return "auction.events." + auctionID
}

// EnsureStream creates or updates the auction event stream.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Stream for auction events archival",
		Subjects:    []string{SubjectPattern},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.WorkQueuePolicy, // Each message consumed once
		MaxAge:      24 * time.Hour,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to create/update stream: %w", err)
	}
	return nil
}

// JetStreamPublisher publishes auction events to NATS JetStream for archival
// (at-least-once delivery).
type JetStreamPublisher struct {
	js  jetstream.JetStream
	log zerolog.Logger
}

// NewJetStreamPublisher creates a JetStream context on conn and ensures the stream exists.
func NewJetStreamPublisher(ctx context.Context, conn *nats.Conn, log zerolog.Logger) (*JetStreamPublisher, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	if err := EnsureStream(ctx, js); err != nil {
		return nil, err
	}

	log = log.With().Str("component", "jetstream_publisher").Logger()
	log.Info().Str("stream", StreamName).Msg("stream ready")
	return &JetStreamPublisher{js: js, log: log}, nil
}

// Publish waits for the server to acknowledge the event.
func (p *JetStreamPublisher) Publish(ctx context.Context, event *models.AuctionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := Subject(event.AuctionID)
	ack, err := p.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}

	p.log.Debug().Str("subject", subject).Uint64("seq", ack.Sequence).Msg("published event")
	return nil
}
