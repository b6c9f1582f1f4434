// Package storagetest checks that a storage.Store implementation honours the
// contract the auction engine relies on.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/danwhitston/auction-api/internal/models"
	"github.com/danwhitston/auction-api/internal/storage"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) storage.Store

var base = time.Date(2026, 1, 2, 15, 4, 5, 123456789, time.UTC)

// Run exercises every Store operation against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"CreateAndFind", testCreateAndFind},
		{"FindMissing", testFindMissing},
		{"CreateConflict", testCreateConflict},
		{"SaveRoundTrip", testSaveRoundTrip},
		{"FindOpenOverdue", testFindOpenOverdue},
		{"List", testList},
		{"ListItems", testListItems},
		{"ReturnedCopiesAreIndependent", testIndependentCopies},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			tt.fn(t, s)
		})
	}
}

// Listing builds an item and its open auction.
func Listing(id, owner string, closing time.Time) (*models.Item, *models.Auction) {
	item := &models.Item{
		ID:          "item-" + id,
		OwnerID:     owner,
		Title:       "Item " + id,
		Condition:   models.ItemConditionNew,
		Description: "description of " + id,
		CreatedAt:   base,
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
		CreatedAt:    base,
		UpdatedAt:    base,
	}
	return item, a
}

func create(t *testing.T, s storage.Store, id string, closing time.Time) *models.Auction {
	t.Helper()
	item, a := Listing(id, "owner-"+id, closing)
	assert.NoError(t, s.CreateListing(context.Background(), item, a))
	return a
}

func ids(auctions []*models.Auction) []string {
	out := make([]string, len(auctions))
	for i, a := range auctions {
		out[i] = a.ID
	}
	return out
}

func testCreateAndFind(t *testing.T, s storage.Store) {
	ctx := context.Background()
	want := create(t, s, "a1", base.Add(time.Hour))

	got, err := s.FindByID(ctx, "a1")
	assert.NoError(t, err)
	check.Equal(t, want.ID, got.ID)
	check.Equal(t, want.ItemID, got.ItemID)
	check.Equal(t, want.OwnerID, got.OwnerID)
	check.Equal(t, models.AuctionStatusOpen, got.Status)
	check.True(t, want.ClosingTime.Equal(got.ClosingTime))
	check.Equal(t, want.WinnerID, got.WinnerID)
	check.True(t, got.WinnerAmount.IsZero())
	check.Equal(t, 0, len(got.Bids))

	owner, err := s.OwnerOf(ctx, want.ItemID)
	assert.NoError(t, err)
	check.Equal(t, "owner-a1", owner)
}

func testFindMissing(t *testing.T, s storage.Store) {
	ctx := context.Background()
	_, err := s.FindByID(ctx, "nope")
	check.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = s.OwnerOf(ctx, "nope")
	check.True(t, errors.Is(err, storage.ErrNotFound))
}

func testCreateConflict(t *testing.T, s storage.Store) {
	ctx := context.Background()
	create(t, s, "a1", base)

	item, a := Listing("a1", "someone-else", base)
	check.True(t, errors.Is(s.CreateListing(ctx, item, a), storage.ErrConflict))

	// Same item, new auction ID.
	_, a2 := Listing("a2", "someone-else", base)
	a2.ItemID = item.ID
	check.True(t, errors.Is(s.CreateListing(ctx, item, a2), storage.ErrConflict))

	_, err := s.FindByID(ctx, "a2")
	check.True(t, errors.Is(err, storage.ErrNotFound))
	owner, err := s.OwnerOf(ctx, item.ID)
	assert.NoError(t, err)
	check.Equal(t, "owner-a1", owner)
}

func testSaveRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := create(t, s, "a1", base)

	a.Bids = append(a.Bids,
		models.Bid{ID: "b1", BidderID: "alice", Amount: decimal.RequireFromString("10.25"), SubmittedAt: base.Add(-time.Minute)},
		models.Bid{ID: "b2", BidderID: "bob", Amount: decimal.RequireFromString("99999999.99"), SubmittedAt: base.Add(-time.Second)},
	)
	a.WinnerID = "bob"
	a.WinnerAmount = decimal.RequireFromString("99999999.99")
	a.Status = models.AuctionStatusClosed
	closedAt := base
	a.ClosedAt = &closedAt
	assert.NoError(t, s.Save(ctx, a))

	got, err := s.FindByID(ctx, "a1")
	assert.NoError(t, err)
	check.Equal(t, models.AuctionStatusClosed, got.Status)
	check.Equal(t, "bob", got.WinnerID)
	check.Equal(t, "99999999.99", got.WinnerAmount.String())
	assert.Equal(t, 2, len(got.Bids))
	check.Equal(t, "b1", got.Bids[0].ID)
	check.Equal(t, "10.25", got.Bids[0].Amount.String())
	check.True(t, got.Bids[0].SubmittedAt.Equal(base.Add(-time.Minute)))
	check.Equal(t, "b2", got.Bids[1].ID)
	assert.NotNil(t, got.ClosedAt)
	check.True(t, got.ClosedAt.Equal(base))
}

func testFindOpenOverdue(t *testing.T, s storage.Store) {
	ctx := context.Background()
	create(t, s, "later", base.Add(time.Second))
	// Closes after now but within now's millisecond.
	create(t, s, "same-millisecond", base.Add(100*time.Microsecond))
	create(t, s, "exact", base)
	create(t, s, "early", base.Add(-time.Hour))
	closed := create(t, s, "closed", base.Add(-2*time.Hour))
	closed.Status = models.AuctionStatusClosed
	assert.NoError(t, s.Save(ctx, closed))

	got, err := s.FindOpenOverdue(ctx, base)
	assert.NoError(t, err)
	check.Equal(t, []string{"early", "exact"}, ids(got))

	got, err = s.FindOpenOverdue(ctx, base.Add(-3*time.Hour))
	assert.NoError(t, err)
	check.Equal(t, 0, len(got))
}

func testList(t *testing.T, s storage.Store) {
	ctx := context.Background()
	for i := 3; i >= 1; i-- {
		create(t, s, fmt.Sprintf("a%d", i), base.Add(time.Duration(i)*time.Minute))
	}
	a2, err := s.FindByID(ctx, "a2")
	assert.NoError(t, err)
	a2.Status = models.AuctionStatusClosed
	assert.NoError(t, s.Save(ctx, a2))

	all, err := s.List(ctx, "")
	assert.NoError(t, err)
	check.Equal(t, []string{"a1", "a2", "a3"}, ids(all))

	open, err := s.List(ctx, models.AuctionStatusOpen)
	assert.NoError(t, err)
	check.Equal(t, []string{"a1", "a3"}, ids(open))

	closed, err := s.List(ctx, models.AuctionStatusClosed)
	assert.NoError(t, err)
	check.Equal(t, []string{"a2"}, ids(closed))
}

func testListItems(t *testing.T, s storage.Store) {
	ctx := context.Background()

	items, err := s.ListItems(ctx)
	assert.NoError(t, err)
	check.Equal(t, 0, len(items))

	for i := 3; i >= 1; i-- {
		id := fmt.Sprintf("a%d", i)
		item, a := Listing(id, "owner-"+id, base.Add(time.Hour))
		item.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		assert.NoError(t, s.CreateListing(ctx, item, a))
	}

	items, err = s.ListItems(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(items))
	check.Equal(t, "item-a1", items[0].ID)
	check.Equal(t, "item-a2", items[1].ID)
	check.Equal(t, "item-a3", items[2].ID)
	check.Equal(t, "owner-a2", items[1].OwnerID)
	check.Equal(t, models.ItemConditionNew, items[1].Condition)
	check.True(t, items[1].CreatedAt.Equal(base.Add(2*time.Minute)))
}

func testIndependentCopies(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := create(t, s, "a1", base)

	a.WinnerID = "mutated"
	got, err := s.FindByID(ctx, "a1")
	assert.NoError(t, err)
	check.Equal(t, "owner-a1", got.WinnerID)

	got.Bids = append(got.Bids, models.Bid{ID: "x"})
	again, err := s.FindByID(ctx, "a1")
	assert.NoError(t, err)
	check.Equal(t, 0, len(again.Bids))
}
