// Package events carries auction events to downstream consumers: live
// watchers over Redis Pub/Sub and the archival worker over NATS JetStream.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/danwhitston/auction-api/internal/models"
)

// Publisher delivers an auction event somewhere.
type Publisher interface {
	Publish(ctx context.Context, event *models.AuctionEvent) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

// Publish sends event to all publishers, even when some fail.
func (m Multi) Publish(ctx context.Context, event *models.AuctionEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BidAccepted builds the event for a bid appended to a.
func BidAccepted(a *models.Auction, bid models.Bid) *models.AuctionEvent {
	return &models.AuctionEvent{
		EventID:      uuid.NewString(),
		Type:         models.EventBidAccepted,
		AuctionID:    a.ID,
		ItemID:       a.ItemID,
		Bid:          &bid,
		WinnerID:     a.WinnerID,
		WinnerAmount: a.WinnerAmount,
		Status:       a.Status,
		Timestamp:    time.Now().UTC(),
	}
}

// AuctionClosed builds the event for a closed auction. ClosedAt carries the
// time the closer closed it, not the publish time.
func AuctionClosed(a *models.Auction) *models.AuctionEvent {
	event := &models.AuctionEvent{
		EventID:      uuid.NewString(),
		Type:         models.EventAuctionClosed,
		AuctionID:    a.ID,
		ItemID:       a.ItemID,
		WinnerID:     a.WinnerID,
		WinnerAmount: a.WinnerAmount,
		Status:       a.Status,
		Timestamp:    time.Now().UTC(),
	}
	if a.ClosedAt != nil {
		closedAt := *a.ClosedAt
		event.ClosedAt = &closedAt
	}
	return event
}
