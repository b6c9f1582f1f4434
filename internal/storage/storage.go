// Package storage defines the persistence contract shared by every auction
// storage backend.
//
// Auctions are stored as whole documents with their bids embedded. Save is a
// single-document atomic write; no backend offers compare-and-swap, so a
// bid write and a closer write racing on the same auction resolve as
// last-writer-wins.
package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/danwhitston/auction-api/internal/models"
)

var (
	// ErrNotFound is returned when a requested auction or item does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when creating a record whose ID is already taken.
	ErrConflict = errors.New("already exists")
)

// Store is the full set of operations a backend provides.
type Store interface {
	// FindByID returns the auction with the given ID or ErrNotFound.
	FindByID(ctx context.Context, auctionID string) (*models.Auction, error)
	// FindOpenOverdue returns open auctions whose closing time is at or before now.
	FindOpenOverdue(ctx context.Context, now time.Time) ([]*models.Auction, error)
	// Save writes the whole auction document.
	Save(ctx context.Context, auction *models.Auction) error
	// OwnerOf returns the owner of an item or ErrNotFound.
	OwnerOf(ctx context.Context, itemID string) (string, error)
	// CreateListing stores a new item and its auction. ErrConflict if either exists.
	CreateListing(ctx context.Context, item *models.Item, auction *models.Auction) error
	// List returns auctions ordered by closing time. An empty status lists all.
	List(ctx context.Context, status models.AuctionStatus) ([]*models.Auction, error)
	// ListItems returns every item ordered by creation time.
	ListItems(ctx context.Context) ([]*models.Item, error)
	// Close releases backend resources.
	Close() error
}

// SortByClosingTime orders auctions by closing time, then ID.
func SortByClosingTime(auctions []*models.Auction) {
	sort.Slice(auctions, func(i, j int) bool {
		if !auctions[i].ClosingTime.Equal(auctions[j].ClosingTime) {
			return auctions[i].ClosingTime.Before(auctions[j].ClosingTime)
		}
		return auctions[i].ID < auctions[j].ID
	})
}

// SortByCreatedAt orders items by creation time, then ID.
func SortByCreatedAt(items []*models.Item) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}
