// Package service composes the auction engine with event publishing for the
// HTTP gateway and the closer process.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/danwhitston/auction-api/internal/auction"
	"github.com/danwhitston/auction-api/internal/events"
	"github.com/danwhitston/auction-api/internal/models"
)

// publishTimeout bounds a single best-effort event publish.
const publishTimeout = 5 * time.Second

// BiddingService handles listing and bidding operations for the gateway.
type BiddingService struct {
	catalog   *auction.Catalog
	acceptor  *auction.Acceptor
	publisher events.Publisher
	log       zerolog.Logger

	wg sync.WaitGroup
}

// NewBiddingService creates a new bidding service. publisher may be nil.
func NewBiddingService(catalog *auction.Catalog, acceptor *auction.Acceptor, publisher events.Publisher, log zerolog.Logger) *BiddingService {
	return &BiddingService{
		catalog:   catalog,
		acceptor:  acceptor,
		publisher: publisher,
		log:       log.With().Str("component", "bidding_service").Logger(),
	}
}

// CreateListing creates an item together with its open auction.
func (s *BiddingService) CreateListing(ctx context.Context, req models.CreateItemRequest) (*models.CreateItemResponse, error) {
	item, a, err := s.catalog.CreateListing(ctx, req)
	if err != nil {
		return nil, err
	}
	return &models.CreateItemResponse{Item: item, Auction: a}, nil
}

// GetAuction retrieves one auction.
func (s *BiddingService) GetAuction(ctx context.Context, auctionID string) (*models.Auction, error) {
	return s.catalog.Get(ctx, auctionID)
}

// ListAuctions lists auctions, optionally filtered by status.
func (s *BiddingService) ListAuctions(ctx context.Context, status models.AuctionStatus) ([]*models.Auction, error) {
	return s.catalog.List(ctx, status)
}

// ListItems lists every item.
func (s *BiddingService) ListItems(ctx context.Context) ([]*models.Item, error) {
	return s.catalog.ListItems(ctx)
}

// PlaceBid submits a bid and, once it is stored, publishes a bid_accepted
// event in the background. The write path never waits on publishing.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID string, req *models.BidRequest) (*models.BidResponse, error) {
	a, err := s.acceptor.Submit(ctx, auctionID, req.UserID, req.Amount)
	if err != nil {
		return nil, err
	}

	bid := a.Bids[len(a.Bids)-1]
	resp := &models.BidResponse{
		Message:    "Bid placed successfully!",
		Bid:        bid,
		IsHighest:  a.WinnerID == bid.BidderID && a.WinnerAmount.Equal(bid.Amount),
		CurrentBid: a.WinnerAmount,
		Auction:    a,
	}
	if resp.IsHighest {
		resp.Message = "Bid placed successfully! You are the highest bidder."
	}

	if s.publisher != nil {
		event := events.BidAccepted(a, bid)
		resp.EventID = event.EventID
		s.publishAsync(event)
	}
	return resp, nil
}

// Wait blocks until in-flight event publishes have finished.
func (s *BiddingService) Wait() {
	s.wg.Wait()
}

func (s *BiddingService) publishAsync(event *models.AuctionEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		publish(ctx, s.publisher, event, s.log)
	}()
}

func publish(ctx context.Context, p events.Publisher, event *models.AuctionEvent, log zerolog.Logger) {
	if err := p.Publish(ctx, event); err != nil {
		log.Warn().Err(err).
			Str("auction_id", event.AuctionID).
			Str("event_type", string(event.Type)).
			Msg("failed to publish auction event")
		return
	}
	log.Debug().
		Str("auction_id", event.AuctionID).
		Str("event_id", event.EventID).
		Str("event_type", string(event.Type)).
		Msg("published auction event")
}
