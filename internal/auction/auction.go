// Package auction implements the auction lifecycle: accepting bids while an
// auction is open, closing overdue auctions, and determining their winners.
//
// Bid submission and closing sweeps run concurrently with no shared lock.
// Each reads and writes one auction document at a time, so a bid accepted
// after the closer has read an auction but before its write lands can be
// lost from the closed document. Acceptor refuses bids once the closing time
// has passed, which narrows that window to bids that were read before the
// deadline and written after the closer's read.
package auction

import (
	"context"
	"time"

	"github.com/danwhitston/auction-api/internal/models"
)

// AuctionStore is the persistence the lifecycle engine consumes.
type AuctionStore interface {
	FindByID(ctx context.Context, auctionID string) (*models.Auction, error)
	FindOpenOverdue(ctx context.Context, now time.Time) ([]*models.Auction, error)
	Save(ctx context.Context, auction *models.Auction) error
}

// OwnerLookup resolves the owner of an auctioned item.
type OwnerLookup interface {
	OwnerOf(ctx context.Context, itemID string) (string, error)
}

// Clock provides the current time.
// This interface enables dependency injection for deterministic testing.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now returns f().
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

var defaultClock Clock = systemClock{}
