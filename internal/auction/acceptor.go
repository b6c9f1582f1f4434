package auction

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/danwhitston/auction-api/internal/models"
	"github.com/danwhitston/auction-api/internal/storage"
)

// Acceptor validates incoming bids and appends them to open auctions.
type Acceptor struct {
	auctions AuctionStore
	owners   OwnerLookup
	clock    Clock
	log      zerolog.Logger
}

// NewAcceptor creates a bid acceptor. A nil clock uses the system clock.
func NewAcceptor(auctions AuctionStore, owners OwnerLookup, clock Clock, log zerolog.Logger) *Acceptor {
	if clock == nil {
		clock = defaultClock
	}
	return &Acceptor{
		auctions: auctions,
		owners:   owners,
		clock:    clock,
		log:      log.With().Str("component", "bid_acceptor").Logger(),
	}
}

// Submit places a bid of amount by bidderID on the auction.
//
// Checks run in order: the auction must exist, must be open and before its
// closing time, the bidder must not own the item, and the amount must lie in
// [0, MaxBid] with at most two decimal places. On success the bid is appended, the winner cache is moved
// forward if the bid is strictly higher, and the auction is saved. The bid
// is accepted only if the save succeeds; the returned auction is the saved
// document.
func (a *Acceptor) Submit(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (*models.Auction, error) {
	auction, err := a.auctions.FindByID(ctx, auctionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(KindNotFound, ReasonAuctionNotFound, auctionID, "auction not found", err)
		}
		return nil, persistenceError(auctionID, "load auction", err)
	}

	now := a.clock.Now()
	if !auction.AcceptingBids(now) {
		return nil, newError(KindState, ReasonAuctionClosed, auctionID, "auction is closed, no further bids accepted", nil)
	}

	bidderID = strings.TrimSpace(bidderID)
	if bidderID == "" {
		return nil, newError(KindValidation, ReasonInvalidBidder, auctionID, "bidder id is required", nil)
	}

	ownerID, err := a.owners.OwnerOf(ctx, auction.ItemID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(KindNotFound, ReasonItemNotFound, auctionID, "item "+auction.ItemID+" not found", err)
		}
		return nil, persistenceError(auctionID, "look up item owner", err)
	}
	if bidderID == ownerID {
		return nil, newError(KindAuthorization, ReasonSelfBid, auctionID, "user cannot bid on their own item", nil)
	}

	if !models.ValidBidAmount(amount) {
		return nil, newError(KindValidation, ReasonInvalidAmount, auctionID,
			"bid must be between 0 and "+models.MaxBid.String()+" with at most 2 decimal places", nil)
	}

	bid := models.Bid{
		ID:          uuid.NewString(),
		BidderID:    bidderID,
		Amount:      amount,
		SubmittedAt: now,
	}
	auction.Bids = append(auction.Bids, bid)
	leading := applyIncrementalWinner(auction, bid)
	auction.UpdatedAt = now

	if err := a.auctions.Save(ctx, auction); err != nil {
		a.log.Error().Err(err).
			Str("auction_id", auctionID).
			Str("bid_id", bid.ID).
			Msg("failed to persist bid")
		return nil, persistenceError(auctionID, "save auction", err)
	}

	a.log.Info().
		Str("auction_id", auctionID).
		Str("bid_id", bid.ID).
		Str("bidder_id", bidderID).
		Stringer("amount", amount).
		Bool("leading", leading).
		Msg("bid accepted")
	return auction, nil
}
