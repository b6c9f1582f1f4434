package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/danwhitston/auction-api/internal/models"
	"github.com/danwhitston/auction-api/internal/storage"
)

// saveScript writes an auction document and its index entries atomically.
var saveScript = redis.NewScript(`
	-- KEYS[1]: auction:{id}
	-- KEYS[2]: auctions:open
	-- KEYS[3]: auctions:all
	-- ARGV[1]: auction JSON document
	-- ARGV[2]: auction ID
	-- ARGV[3]: status
	-- ARGV[4]: closing time (unix ms)
	redis.call('SET', KEYS[1], ARGV[1])
	redis.call('ZADD', KEYS[3], ARGV[4], ARGV[2])
	if ARGV[3] == 'open' then
		redis.call('ZADD', KEYS[2], ARGV[4], ARGV[2])
	else
		redis.call('ZREM', KEYS[2], ARGV[2])
	end
	return 1
`)

// createScript writes an item and its auction only if neither exists.
var createScript = redis.NewScript(`
	-- KEYS[1]: item:{itemID}
	-- KEYS[2]: auction:{auctionID}
	-- KEYS[3]: auctions:open
	-- KEYS[4]: auctions:all
	-- KEYS[5]: items:all
	-- ARGV[1]: item JSON document
	-- ARGV[2]: auction JSON document
	-- ARGV[3]: auction ID
	-- ARGV[4]: closing time (unix ms)
	-- ARGV[5]: item ID
	-- ARGV[6]: item creation time (unix ms)
	if redis.call('EXISTS', KEYS[1]) == 1 or redis.call('EXISTS', KEYS[2]) == 1 then
		return 0
	end
	redis.call('SET', KEYS[1], ARGV[1])
	redis.call('SET', KEYS[2], ARGV[2])
	redis.call('ZADD', KEYS[3], ARGV[4], ARGV[3])
	redis.call('ZADD', KEYS[4], ARGV[4], ARGV[3])
	redis.call('ZADD', KEYS[5], ARGV[6], ARGV[5])
	return 1
`)

// Store keeps auction documents in Redis strings, indexed by closing time.
type Store struct {
	client *Client
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a Redis-backed auction store.
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// FindByID loads one auction document.
func (s *Store) FindByID(ctx context.Context, auctionID string) (*models.Auction, error) {
	data, err := s.client.rdb.Get(ctx, auctionKey(auctionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}

	var a models.Auction
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode auction: %w", err)
	}
	return &a, nil
}

// FindOpenOverdue reads the open index up to now and loads the documents.
func (s *Store) FindOpenOverdue(ctx context.Context, now time.Time) ([]*models.Auction, error) {
	ids, err := s.client.rdb.ZRangeByScore(ctx, openIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read open index: %w", err)
	}

	auctions, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	// The index is maintained with the document, but filter on the document itself.
	out := auctions[:0]
	for _, a := range auctions {
		if a.Status == models.AuctionStatusOpen && a.IsOverdue(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

// List returns auctions with the given status, or all when status is empty.
func (s *Store) List(ctx context.Context, status models.AuctionStatus) ([]*models.Auction, error) {
	index := allIndexKey
	if status == models.AuctionStatusOpen {
		index = openIndexKey
	}
	ids, err := s.client.rdb.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read auction index: %w", err)
	}

	auctions, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := auctions[:0]
	for _, a := range auctions {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) load(ctx context.Context, ids []string) ([]*models.Auction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = auctionKey(id)
	}

	values, err := s.client.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load auctions: %w", err)
	}

	auctions := make([]*models.Auction, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a document.
			continue
		}
		var a models.Auction
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("failed to decode auction %s: %w", ids[i], err)
		}
		auctions = append(auctions, &a)
	}
	return auctions, nil
}

// Save writes the document and updates the indexes in one script call.
func (s *Store) Save(ctx context.Context, auction *models.Auction) error {
	doc, err := json.Marshal(auction)
	if err != nil {
		return fmt.Errorf("failed to encode auction: %w", err)
	}

	keys := []string{auctionKey(auction.ID), openIndexKey, allIndexKey}
	err = saveScript.Run(ctx, s.client.rdb, keys,
		doc, auction.ID, string(auction.Status), auction.ClosingTime.UnixMilli()).Err()
	if err != nil {
		return fmt.Errorf("failed to execute save script: %w", err)
	}
	return nil
}

// OwnerOf returns the owner of an item.
func (s *Store) OwnerOf(ctx context.Context, itemID string) (string, error) {
	data, err := s.client.rdb.Get(ctx, itemKey(itemID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("failed to get item: %w", err)
	}

	var item models.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return "", fmt.Errorf("failed to decode item: %w", err)
	}
	return item.OwnerID, nil
}

// CreateListing stores the item and auction atomically.
func (s *Store) CreateListing(ctx context.Context, item *models.Item, auction *models.Auction) error {
	itemDoc, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode item: %w", err)
	}
	auctionDoc, err := json.Marshal(auction)
	if err != nil {
		return fmt.Errorf("failed to encode auction: %w", err)
	}

	keys := []string{itemKey(item.ID), auctionKey(auction.ID), openIndexKey, allIndexKey, itemIndexKey}
	created, err := createScript.Run(ctx, s.client.rdb, keys,
		itemDoc, auctionDoc, auction.ID, auction.ClosingTime.UnixMilli(),
		item.ID, item.CreatedAt.UnixMilli()).Int()
	if err != nil {
		return fmt.Errorf("failed to execute create script: %w", err)
	}
	if created == 0 {
		return storage.ErrConflict
	}
	return nil
}

// ListItems reads the item index and loads the documents.
func (s *Store) ListItems(ctx context.Context) ([]*models.Item, error) {
	ids, err := s.client.rdb.ZRange(ctx, itemIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read item index: %w", err)
	}
	items := []*models.Item{}
	if len(ids) == 0 {
		return items, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = itemKey(id)
	}
	values, err := s.client.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var item models.Item
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("failed to decode item %s: %w", ids[i], err)
		}
		items = append(items, &item)
	}
	storage.SortByCreatedAt(items)
	return items, nil
}

// Close is a no-op; the Client is closed by whoever created it.
func (s *Store) Close() error {
	return nil
}
