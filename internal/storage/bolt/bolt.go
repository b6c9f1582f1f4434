// Package bolt provides a BoltDB-backed auction store.
//
// Every auction is one JSON document in the auctions bucket, keyed by ID.
// Bolt serializes write transactions, so Save is atomic for a single
// document, and CreateListing writes the item and its auction in one
// transaction.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/danwhitston/auction-api/internal/models"
	"github.com/danwhitston/auction-api/internal/storage"
)

const (
	auctionsBucket = "auctions"
	itemsBucket    = "items"
)

// Store wraps a BoltDB database.
type Store struct {
	db *bolt.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens (or creates) a BoltDB database at path and ensures the buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{auctionsBucket, itemsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// FindByID retrieves a single auction.
func (s *Store) FindByID(ctx context.Context, auctionID string) (*models.Auction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var a models.Auction
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(auctionsBucket)).Get([]byte(auctionID))
		if v == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(v, &a)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindOpenOverdue scans the auctions bucket for open auctions closing at or before now.
func (s *Store) FindOpenOverdue(ctx context.Context, now time.Time) ([]*models.Auction, error) {
	return s.scan(ctx, func(a *models.Auction) bool {
		return a.Status == models.AuctionStatusOpen && a.IsOverdue(now)
	})
}

// List returns auctions with the given status, or all when status is empty.
func (s *Store) List(ctx context.Context, status models.AuctionStatus) ([]*models.Auction, error) {
	return s.scan(ctx, func(a *models.Auction) bool {
		return status == "" || a.Status == status
	})
}

func (s *Store) scan(ctx context.Context, keep func(*models.Auction) bool) ([]*models.Auction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*models.Auction
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(auctionsBucket)).ForEach(func(k, v []byte) error {
			var a models.Auction
			if err := json.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("decode auction %s: %w", k, err)
			}
			if keep(&a) {
				out = append(out, &a)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	storage.SortByClosingTime(out)
	return out, nil
}

// ListItems scans the items bucket.
func (s *Store) ListItems(ctx context.Context) ([]*models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []*models.Item{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(itemsBucket)).ForEach(func(k, v []byte) error {
			var item models.Item
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("decode item %s: %w", k, err)
			}
			out = append(out, &item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	storage.SortByCreatedAt(out)
	return out, nil
}

// Save writes the whole auction document.
func (s *Store) Save(ctx context.Context, auction *models.Auction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(auction)
	if err != nil {
		return fmt.Errorf("encode auction: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(auctionsBucket)).Put([]byte(auction.ID), data)
	})
}

// OwnerOf returns the owner of an item.
func (s *Store) OwnerOf(ctx context.Context, itemID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var item models.Item
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(itemsBucket)).Get([]byte(itemID))
		if v == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(v, &item)
	})
	if err != nil {
		return "", err
	}
	return item.OwnerID, nil
}

// CreateListing persists an item and its auction only if neither exists yet.
func (s *Store) CreateListing(ctx context.Context, item *models.Item, auction *models.Auction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	itemData, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	auctionData, err := json.Marshal(auction)
	if err != nil {
		return fmt.Errorf("encode auction: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		items := tx.Bucket([]byte(itemsBucket))
		auctions := tx.Bucket([]byte(auctionsBucket))
		if items.Get([]byte(item.ID)) != nil || auctions.Get([]byte(auction.ID)) != nil {
			return storage.ErrConflict
		}
		if err := items.Put([]byte(item.ID), itemData); err != nil {
			return err
		}
		return auctions.Put([]byte(auction.ID), auctionData)
	})
}
