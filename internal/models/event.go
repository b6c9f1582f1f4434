package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionEventType identifies what happened to an auction.
type AuctionEventType string

// AuctionEventType constants
const (
	EventBidAccepted   AuctionEventType = "bid_accepted"
	EventAuctionClosed AuctionEventType = "auction_closed"
)

// AuctionEvent represents an event that gets published when an auction changes.
// This is sent to:
// 1. Redis Pub/Sub (for real-time WebSocket broadcast)
// 2. NATS JetStream (for archival to PostgreSQL)
type AuctionEvent struct {
	EventID      string           `json:"event_id"`
	Type         AuctionEventType `json:"type"`
	AuctionID    string           `json:"auction_id"`
	ItemID       string           `json:"item_id"`
	Bid          *Bid             `json:"bid,omitempty"`
	WinnerID     string           `json:"winner_id"`
	WinnerAmount decimal.Decimal  `json:"winner_amount"`
	Status       AuctionStatus    `json:"status"`
	ClosedAt     *time.Time       `json:"closed_at,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}
