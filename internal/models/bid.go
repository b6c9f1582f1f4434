package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxBid is the largest amount a single bid may carry.
var MaxBid = decimal.NewFromInt(100_000_000)

// MaxBidScale is the number of decimal places a bid amount may carry.
const MaxBidScale = 2

const (
	// maxBidIntegerDigits is the number of integer digits in MaxBid.
	maxBidIntegerDigits = 9
	// minBidExponent bounds trailing fractional zeros such as 5.000000.
	minBidExponent = -32
)

// Bid represents a single offer on an auction. Bids are never mutated once created.
type Bid struct {
	ID          string          `json:"id"`
	BidderID    string          `json:"bidder_id"`
	Amount      decimal.Decimal `json:"amount"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// BidRequest represents the incoming bid request from API
type BidRequest struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

// ValidBidAmount reports whether amount lies within [0, MaxBid] and carries
// at most MaxBidScale decimal places. Comparisons rescale to a common
// exponent, so the exponent is bounded first.
func ValidBidAmount(amount decimal.Decimal) bool {
	exp := amount.Exponent()
	if exp < minBidExponent || int64(exp)+int64(amount.NumDigits()) > maxBidIntegerDigits {
		return false
	}
	if !amount.Equal(amount.Truncate(MaxBidScale)) {
		return false
	}
	return !amount.IsNegative() && amount.LessThanOrEqual(MaxBid)
}

// BidResponse is returned to the caller after a bid has been accepted.
type BidResponse struct {
	Message    string          `json:"message"`
	Bid        Bid             `json:"bid"`
	IsHighest  bool            `json:"is_highest"`
	CurrentBid decimal.Decimal `json:"current_bid"`
	Auction    *Auction        `json:"auction"`
	EventID    string          `json:"event_id,omitempty"`
}
