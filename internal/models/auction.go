package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction.
type AuctionStatus string

// AuctionStatus constants. Status only ever moves from open to closed.
const (
	AuctionStatusOpen   AuctionStatus = "open"
	AuctionStatusClosed AuctionStatus = "closed"
)

// Valid reports whether s is a known status.
func (s AuctionStatus) Valid() bool {
	return s == AuctionStatusOpen || s == AuctionStatusClosed
}

// Auction tracks an item's bidding window, its bids and the current winner.
//
// WinnerID and WinnerAmount are a cache. While the auction is open they are
// updated best-effort as bids arrive and may lag behind Bids; they are only
// authoritative once Status is closed.
type Auction struct {
	ID           string          `json:"id"`
	ItemID       string          `json:"item_id"`
	OwnerID      string          `json:"owner_id"`
	Status       AuctionStatus   `json:"status"`
	ClosingTime  time.Time       `json:"closing_time"`
	WinnerID     string          `json:"winner_id"`
	WinnerAmount decimal.Decimal `json:"winner_amount"`
	Bids         []Bid           `json:"bids"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	ClosedAt     *time.Time      `json:"closed_at,omitempty"`
}

// IsOverdue reports whether the closing time has been reached at now.
func (a *Auction) IsOverdue(now time.Time) bool {
	return !now.Before(a.ClosingTime)
}

// AcceptingBids reports whether a bid submitted at now may be accepted.
// An open auction past its closing time is not accepting bids even though
// the closer has not processed it yet.
func (a *Auction) AcceptingBids(now time.Time) bool {
	return a.Status == AuctionStatusOpen && !a.IsOverdue(now)
}

// Clone returns a deep copy of the auction.
func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	c := *a
	c.Bids = slices.Clone(a.Bids)
	if a.ClosedAt != nil {
		closedAt := *a.ClosedAt
		c.ClosedAt = &closedAt
	}
	return &c
}
