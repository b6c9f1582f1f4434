package auction

import (
	"github.com/shopspring/decimal"

	"github.com/danwhitston/auction-api/internal/models"
)

// SelectWinner returns the winning bidder and amount for a bid sequence.
//
// The highest amount wins. Among bids at the highest amount the earliest
// SubmittedAt wins, and among bids with equal timestamps the one earlier in
// the sequence wins. With no bids the default winner (the item owner) wins
// with an amount of zero.
func SelectWinner(bids []models.Bid, defaultWinnerID string) (string, decimal.Decimal) {
	if len(bids) == 0 {
		return defaultWinnerID, decimal.Zero
	}

	best := 0
	for i := 1; i < len(bids); i++ {
		if outranks(bids[i], bids[best]) {
			best = i
		}
	}
	return bids[best].BidderID, bids[best].Amount
}

// outranks reports whether candidate beats current.
func outranks(candidate, current models.Bid) bool {
	if c := candidate.Amount.Cmp(current.Amount); c != 0 {
		return c > 0
	}
	return candidate.SubmittedAt.Before(current.SubmittedAt)
}

// Reconcile recomputes the winner of a from its full bid sequence.
func Reconcile(a *models.Auction, defaultWinnerID string) {
	a.WinnerID, a.WinnerAmount = SelectWinner(a.Bids, defaultWinnerID)
}

// applyIncrementalWinner updates the winner cache for a newly appended bid.
// It only moves the cache forward on a strictly higher amount while the
// auction is open; the closer's Reconcile is what makes the result final.
func applyIncrementalWinner(a *models.Auction, bid models.Bid) bool {
	if a.Status != models.AuctionStatusOpen {
		return false
	}
	if !bid.Amount.GreaterThan(a.WinnerAmount) {
		return false
	}
	a.WinnerID = bid.BidderID
	a.WinnerAmount = bid.Amount
	return true
}
