package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/danwhitston/auction-api/internal/models"
)

// errMalformedEvent marks payloads that will never decode; they are
// terminated instead of redelivered.
var errMalformedEvent = errors.New("malformed event")

// Sink receives decoded auction events for persistence.
type Sink interface {
	RecordBid(ctx context.Context, auctionID string, bid models.Bid) error
	RecordResult(ctx context.Context, event *models.AuctionEvent) error
}

// Consumer consumes auction events from JetStream and persists them to a Sink.
type Consumer struct {
	js        jetstream.JetStream
	sink      Sink
	durable   string
	dbTimeout time.Duration
	log       zerolog.Logger
}

// NewConsumer creates a durable JetStream consumer.
func NewConsumer(conn *nats.Conn, sink Sink, durable string, log zerolog.Logger) (*Consumer, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Consumer{
		js:        js,
		sink:      sink,
		durable:   durable,
		dbTimeout: 10 * time.Second,
		log:       log.With().Str("component", "event_consumer").Logger(),
	}, nil
}

// Start consumes events until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if err := EnsureStream(ctx, c.js); err != nil {
		return err
	}

	cons, err := c.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       c.durable,
		FilterSubject: SubjectPattern,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		c.handleMessage(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer cc.Stop()

	c.log.Info().Str("subject", SubjectPattern).Str("durable", c.durable).Msg("consuming auction events")

	<-ctx.Done()
	return nil
}

// handleMessage processes a single event message
func (c *Consumer) handleMessage(ctx context.Context, msg jetstream.Msg) {
	dbCtx, cancel := context.WithTimeout(ctx, c.dbTimeout)
	defer cancel()

	if err := c.Handle(dbCtx, msg.Data()); err != nil {
		c.log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to persist event")
		if errors.Is(err, errMalformedEvent) {
			if termErr := msg.Term(); termErr != nil {
				c.log.Error().Err(termErr).Msg("failed to terminate message")
			}
			return
		}
		if nakErr := msg.Nak(); nakErr != nil {
			c.log.Error().Err(nakErr).Msg("failed to nak message")
		}
		return
	}

	if err := msg.Ack(); err != nil {
		c.log.Error().Err(err).Msg("failed to ack message")
	}
}

// Handle decodes one event payload and writes it to the sink.
func (c *Consumer) Handle(ctx context.Context, data []byte) error {
	var event models.AuctionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}

	switch event.Type {
	case models.EventBidAccepted:
		if event.Bid == nil {
			return fmt.Errorf("%w: bid event %s has no bid", errMalformedEvent, event.EventID)
		}
		if err := c.sink.RecordBid(ctx, event.AuctionID, *event.Bid); err != nil {
			return fmt.Errorf("failed to record bid: %w", err)
		}
	case models.EventAuctionClosed:
		if err := c.sink.RecordResult(ctx, &event); err != nil {
			return fmt.Errorf("failed to record result: %w", err)
		}
	default:
		c.log.Warn().Str("type", string(event.Type)).Str("event_id", event.EventID).Msg("ignoring unknown event type")
		return nil
	}

	c.log.Info().
		Str("event_id", event.EventID).
		Str("type", string(event.Type)).
		Str("auction_id", event.AuctionID).
		Msg("persisted event")
	return nil
}
