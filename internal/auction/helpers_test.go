package auction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"

	"github.com/danwhitston/auction-api/internal/models"
	"github.com/danwhitston/auction-api/internal/storage/memory"
)

var (
	baseTime   = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	errStoreIO = errors.New("connection reset")
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// fakeStore wraps the memory store with injectable failures.
type fakeStore struct {
	*memory.Store

	mu          sync.Mutex
	saveErr     func(a *models.Auction) error
	afterSave   func(a *models.Auction)
	findErr     error
	overdueErr  error
	ownerErr    error
	saves       int
	overdueRuns int
}

func newFakeStore() *fakeStore {
	return &fakeStore{Store: memory.New()}
}

func (s *fakeStore) FindByID(ctx context.Context, id string) (*models.Auction, error) {
	s.mu.Lock()
	err := s.findErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Store.FindByID(ctx, id)
}

func (s *fakeStore) FindOpenOverdue(ctx context.Context, now time.Time) ([]*models.Auction, error) {
	s.mu.Lock()
	s.overdueRuns++
	err := s.overdueErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Store.FindOpenOverdue(ctx, now)
}

func (s *fakeStore) Save(ctx context.Context, a *models.Auction) error {
	s.mu.Lock()
	hook := s.saveErr
	s.mu.Unlock()
	if hook != nil {
		if err := hook(a); err != nil {
			return err
		}
	}
	if err := s.Store.Save(ctx, a); err != nil {
		return err
	}
	s.mu.Lock()
	s.saves++
	after := s.afterSave
	s.mu.Unlock()
	if after != nil {
		after(a)
	}
	return nil
}

func (s *fakeStore) OwnerOf(ctx context.Context, itemID string) (string, error) {
	s.mu.Lock()
	err := s.ownerErr
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	return s.Store.OwnerOf(ctx, itemID)
}

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// seed stores an open auction owned by owner closing at closing.
func seed(t *testing.T, s *fakeStore, id, owner string, closing time.Time, bids ...models.Bid) *models.Auction {
	t.Helper()
	item := &models.Item{
		ID:        "item-" + id,
		OwnerID:   owner,
		Title:     "Item " + id,
		Condition: models.ItemConditionNew,
		CreatedAt: baseTime,
	}
	a := &models.Auction{
		ID:           id,
		ItemID:       item.ID,
		OwnerID:      owner,
		Status:       models.AuctionStatusOpen,
		ClosingTime:  closing,
		WinnerID:     owner,
		WinnerAmount: decimal.Zero,
		Bids:         []models.Bid{},
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime,
	}
	assert.NoError(t, s.Store.CreateListing(context.Background(), item, a))
	if len(bids) > 0 {
		a.Bids = append(a.Bids, bids...)
		assert.NoError(t, s.Store.Save(context.Background(), a))
	}
	return a
}

func bid(id, bidder, amount string, at time.Time) models.Bid {
	return models.Bid{
		ID:          id,
		BidderID:    bidder,
		Amount:      decimal.RequireFromString(amount),
		SubmittedAt: at,
	}
}

func load(t *testing.T, s *fakeStore, id string) *models.Auction {
	t.Helper()
	a, err := s.Store.FindByID(context.Background(), id)
	assert.NoError(t, err)
	return a
}
