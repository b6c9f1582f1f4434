package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/danwhitston/auction-api/internal/auction"
	"github.com/danwhitston/auction-api/internal/models"
	"github.com/danwhitston/auction-api/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.AuctionEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event *models.AuctionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) recorded() []*models.AuctionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.AuctionEvent(nil), p.events...)
}

type env struct {
	now       time.Time
	clock     auction.Clock
	store     *memory.Store
	publisher *recordingPublisher
	bidding   *BiddingService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		now:       time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
		store:     memory.New(),
		publisher: &recordingPublisher{},
	}
	e.clock = auction.ClockFunc(func() time.Time { return e.now })
	log := zerolog.Nop()
	e.bidding = NewBiddingService(
		auction.NewCatalog(e.store, e.clock, log),
		auction.NewAcceptor(e.store, e.store, e.clock, log),
		e.publisher,
		log,
	)
	return e
}

func (e *env) list(t *testing.T, owner string, closesIn time.Duration) *models.Auction {
	t.Helper()
	resp, err := e.bidding.CreateListing(context.Background(), models.CreateItemRequest{
		OwnerID:     owner,
		Title:       "Camera",
		Condition:   models.ItemConditionUsed,
		ClosingTime: e.now.Add(closesIn),
	})
	assert.NoError(t, err)
	return resp.Auction
}

func TestPlaceBidPublishesEvent(t *testing.T) {
	e := newEnv(t)
	a := e.list(t, "owner", time.Hour)

	resp, err := e.bidding.PlaceBid(context.Background(), a.ID, &models.BidRequest{UserID: "alice", Amount: decimal.NewFromInt(40)})
	assert.NoError(t, err)
	check.True(t, resp.IsHighest)
	check.Equal(t, "40", resp.CurrentBid.String())

	e.bidding.Wait()
	events := e.publisher.recorded()
	assert.Equal(t, 1, len(events))
	check.Equal(t, models.EventBidAccepted, events[0].Type)
	check.Equal(t, resp.EventID, events[0].EventID)
	check.Equal(t, resp.Bid.ID, events[0].Bid.ID)
}

func TestPlaceBidNotHighest(t *testing.T) {
	e := newEnv(t)
	a := e.list(t, "owner", time.Hour)
	ctx := context.Background()

	_, err := e.bidding.PlaceBid(ctx, a.ID, &models.BidRequest{UserID: "alice", Amount: decimal.NewFromInt(40)})
	assert.NoError(t, err)
	resp, err := e.bidding.PlaceBid(ctx, a.ID, &models.BidRequest{UserID: "bob", Amount: decimal.NewFromInt(40)})
	assert.NoError(t, err)

	check.False(t, resp.IsHighest)
	check.Equal(t, "alice", resp.Auction.WinnerID)
}

func TestPlaceBidPublishFailureDoesNotFailBid(t *testing.T) {
	e := newEnv(t)
	e.publisher.err = errors.New("nats unavailable")
	a := e.list(t, "owner", time.Hour)

	_, err := e.bidding.PlaceBid(context.Background(), a.ID, &models.BidRequest{UserID: "alice", Amount: decimal.NewFromInt(1)})
	check.NoError(t, err)
	e.bidding.Wait()

	stored, err := e.bidding.GetAuction(context.Background(), a.ID)
	assert.NoError(t, err)
	check.Equal(t, 1, len(stored.Bids))
}

func TestPlaceBidRejectedPublishesNothing(t *testing.T) {
	e := newEnv(t)
	a := e.list(t, "owner", time.Hour)

	_, err := e.bidding.PlaceBid(context.Background(), a.ID, &models.BidRequest{UserID: "owner", Amount: decimal.NewFromInt(1)})
	check.True(t, errors.Is(err, auction.ErrSelfBid))
	e.bidding.Wait()
	check.Equal(t, 0, len(e.publisher.recorded()))
}

func TestPlaceBidWithoutPublisher(t *testing.T) {
	e := newEnv(t)
	e.bidding.publisher = nil
	a := e.list(t, "owner", time.Hour)

	resp, err := e.bidding.PlaceBid(context.Background(), a.ID, &models.BidRequest{UserID: "alice", Amount: decimal.NewFromInt(1)})
	assert.NoError(t, err)
	check.Equal(t, "", resp.EventID)
}

func TestSweepPublishesClosedAuctions(t *testing.T) {
	e := newEnv(t)
	a := e.list(t, "owner", time.Minute)
	e.list(t, "owner", time.Hour)
	_, err := e.bidding.PlaceBid(context.Background(), a.ID, &models.BidRequest{UserID: "alice", Amount: decimal.NewFromInt(9)})
	assert.NoError(t, err)
	e.bidding.Wait()

	closing := NewClosingService(auction.NewCloser(e.store, e.store, zerolog.Nop()), e.publisher, e.clock, zerolog.Nop())
	e.now = e.now.Add(2 * time.Minute)

	result, err := closing.Sweep(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, len(result.Closed))

	events := e.publisher.recorded()
	assert.Equal(t, 2, len(events))
	closed := events[1]
	check.Equal(t, models.EventAuctionClosed, closed.Type)
	check.Equal(t, a.ID, closed.AuctionID)
	check.Equal(t, "alice", closed.WinnerID)
	check.Equal(t, "9", closed.WinnerAmount.String())
}

func TestSweepPublishFailureIsNotFatal(t *testing.T) {
	e := newEnv(t)
	e.list(t, "owner", time.Minute)
	e.publisher.err = errors.New("redis down")

	closing := NewClosingService(auction.NewCloser(e.store, e.store, zerolog.Nop()), e.publisher, e.clock, zerolog.Nop())
	e.now = e.now.Add(time.Hour)

	result, err := closing.Sweep(context.Background())
	assert.NoError(t, err)
	check.Equal(t, 1, len(result.Closed))
}

func TestClosingRunStopsOnCancel(t *testing.T) {
	e := newEnv(t)
	e.list(t, "owner", time.Minute)
	e.now = e.now.Add(time.Hour)
	closing := NewClosingService(auction.NewCloser(e.store, e.store, zerolog.Nop()), nil, e.clock, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- closing.Run(ctx, 10*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for {
		open, err := e.store.List(context.Background(), models.AuctionStatusOpen)
		assert.NoError(t, err)
		if len(open) == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("auction was never closed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		check.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}
