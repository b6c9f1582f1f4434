// Package memory provides an in-process auction store. Documents are copied
// on every read and write, so callers never share state with the store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/danwhitston/auction-api/internal/models"
	"github.com/danwhitston/auction-api/internal/storage"
)

// Store keeps auctions and items in maps guarded by a mutex.
type Store struct {
	mu       sync.RWMutex
	auctions map[string]*models.Auction
	items    map[string]*models.Item
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		auctions: make(map[string]*models.Auction),
		items:    make(map[string]*models.Item),
	}
}

// FindByID returns a copy of the auction.
func (s *Store) FindByID(ctx context.Context, auctionID string) (*models.Auction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return a.Clone(), nil
}

// FindOpenOverdue returns copies of open auctions closing at or before now.
func (s *Store) FindOpenOverdue(ctx context.Context, now time.Time) ([]*models.Auction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Auction
	for _, a := range s.auctions {
		if a.Status == models.AuctionStatusOpen && a.IsOverdue(now) {
			out = append(out, a.Clone())
		}
	}
	storage.SortByClosingTime(out)
	return out, nil
}

// Save replaces the stored auction with a copy of auction.
func (s *Store) Save(ctx context.Context, auction *models.Auction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auctions[auction.ID] = auction.Clone()
	return nil
}

// OwnerOf returns the owner of an item.
func (s *Store) OwnerOf(ctx context.Context, itemID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return item.OwnerID, nil
}

// CreateListing stores an item and its auction together.
func (s *Store) CreateListing(ctx context.Context, item *models.Item, auction *models.Auction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.ID]; ok {
		return storage.ErrConflict
	}
	if _, ok := s.auctions[auction.ID]; ok {
		return storage.ErrConflict
	}
	itemCopy := *item
	s.items[item.ID] = &itemCopy
	s.auctions[auction.ID] = auction.Clone()
	return nil
}

// List returns copies of auctions with the given status, or all when status is empty.
func (s *Store) List(ctx context.Context, status models.AuctionStatus) ([]*models.Auction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Auction, 0, len(s.auctions))
	for _, a := range s.auctions {
		if status == "" || a.Status == status {
			out = append(out, a.Clone())
		}
	}
	storage.SortByClosingTime(out)
	return out, nil
}

// ListItems returns copies of every item.
func (s *Store) ListItems(ctx context.Context) ([]*models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Item, 0, len(s.items))
	for _, item := range s.items {
		itemCopy := *item
		out = append(out, &itemCopy)
	}
	storage.SortByCreatedAt(out)
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
