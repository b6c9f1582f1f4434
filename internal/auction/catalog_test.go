package auction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/rs/zerolog"

	"github.com/danwhitston/auction-api/internal/models"
)

func validListing() models.CreateItemRequest {
	return models.CreateItemRequest{
		OwnerID:     "owner",
		Title:       "Road bike",
		Condition:   models.ItemConditionUsed,
		Description: "56cm frame",
		ClosingTime: baseTime.Add(24 * time.Hour),
	}
}

func TestCreateListing(t *testing.T) {
	s := newFakeStore()
	cat := NewCatalog(s, newFakeClock(baseTime), zerolog.Nop())

	item, a, err := cat.CreateListing(context.Background(), validListing())
	assert.NoError(t, err)

	check.NotEqual(t, "", item.ID)
	check.Equal(t, "owner", item.OwnerID)
	check.Equal(t, baseTime, item.CreatedAt)
	check.Equal(t, item.ID, a.ItemID)
	check.Equal(t, models.AuctionStatusOpen, a.Status)
	check.Equal(t, "owner", a.WinnerID)
	check.True(t, a.WinnerAmount.IsZero())
	check.Equal(t, 0, len(a.Bids))

	stored, err := cat.Get(context.Background(), a.ID)
	assert.NoError(t, err)
	check.Equal(t, a.ClosingTime, stored.ClosingTime)

	owner, err := s.OwnerOf(context.Background(), item.ID)
	assert.NoError(t, err)
	check.Equal(t, "owner", owner)
}

func TestCreateListingValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *models.CreateItemRequest)
	}{
		{"missing owner", func(r *models.CreateItemRequest) { r.OwnerID = " " }},
		{"missing title", func(r *models.CreateItemRequest) { r.Title = "" }},
		{"title too long", func(r *models.CreateItemRequest) { r.Title = strings.Repeat("x", models.MaxTitleLength+1) }},
		{"unknown condition", func(r *models.CreateItemRequest) { r.Condition = "refurbished" }},
		{"description too long", func(r *models.CreateItemRequest) {
			r.Description = strings.Repeat("x", models.MaxDescriptionLength+1)
		}},
		{"missing closing time", func(r *models.CreateItemRequest) { r.ClosingTime = time.Time{} }},
		{"closing time in the past", func(r *models.CreateItemRequest) { r.ClosingTime = baseTime.Add(-time.Second) }},
		{"closing time now", func(r *models.CreateItemRequest) { r.ClosingTime = baseTime }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeStore()
			cat := NewCatalog(s, newFakeClock(baseTime), zerolog.Nop())
			req := validListing()
			tt.modify(&req)

			_, _, err := cat.CreateListing(context.Background(), req)
			check.True(t, errors.Is(err, ErrValidation))
			check.Equal(t, 400, HTTPStatus(err))

			all, err := s.List(context.Background(), "")
			assert.NoError(t, err)
			check.Equal(t, 0, len(all))
		})
	}
}

func TestCreateListingTitleLimitCountsCharacters(t *testing.T) {
	cat := NewCatalog(newFakeStore(), newFakeClock(baseTime), zerolog.Nop())
	req := validListing()
	req.Title = strings.Repeat("é", models.MaxTitleLength)

	_, _, err := cat.CreateListing(context.Background(), req)
	check.NoError(t, err)
}

func TestGetUnknownAuction(t *testing.T) {
	cat := NewCatalog(newFakeStore(), newFakeClock(baseTime), zerolog.Nop())
	_, err := cat.Get(context.Background(), "missing")
	check.True(t, errors.Is(err, ErrAuctionNotFound))
}

func TestList(t *testing.T) {
	s := newFakeStore()
	seed(t, s, "a1", "owner", baseTime)
	closed := seed(t, s, "a2", "owner", baseTime.Add(time.Hour))
	closed.Status = models.AuctionStatusClosed
	assert.NoError(t, s.Store.Save(context.Background(), closed))
	cat := NewCatalog(s, newFakeClock(baseTime), zerolog.Nop())

	all, err := cat.List(context.Background(), "")
	assert.NoError(t, err)
	check.Equal(t, 2, len(all))

	open, err := cat.List(context.Background(), models.AuctionStatusOpen)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(open))
	check.Equal(t, "a1", open[0].ID)

	_, err = cat.List(context.Background(), "pending")
	check.True(t, errors.Is(err, ErrValidation))
}

func TestListEmptyIsNotNil(t *testing.T) {
	cat := NewCatalog(newFakeStore(), newFakeClock(baseTime), zerolog.Nop())
	all, err := cat.List(context.Background(), models.AuctionStatusClosed)
	assert.NoError(t, err)
	check.NotNil(t, all)
	check.Equal(t, 0, len(all))
}

func TestListItems(t *testing.T) {
	s := newFakeStore()
	clock := newFakeClock(baseTime)
	cat := NewCatalog(s, clock, zerolog.Nop())

	items, err := cat.ListItems(context.Background())
	assert.NoError(t, err)
	check.NotNil(t, items)
	check.Equal(t, 0, len(items))

	first, _, err := cat.CreateListing(context.Background(), validListing())
	assert.NoError(t, err)
	clock.Set(baseTime.Add(time.Minute))
	req := validListing()
	req.OwnerID = "other"
	second, _, err := cat.CreateListing(context.Background(), req)
	assert.NoError(t, err)

	items, err = cat.ListItems(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, len(items))
	check.Equal(t, first.ID, items[0].ID)
	check.Equal(t, second.ID, items[1].ID)
	check.Equal(t, "other", items[1].OwnerID)
}
