package auction

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/danwhitston/auction-api/internal/models"
	"github.com/danwhitston/auction-api/internal/storage"
)

// CatalogStore is the persistence used to create and browse auctions.
type CatalogStore interface {
	FindByID(ctx context.Context, auctionID string) (*models.Auction, error)
	CreateListing(ctx context.Context, item *models.Item, auction *models.Auction) error
	List(ctx context.Context, status models.AuctionStatus) ([]*models.Auction, error)
	ListItems(ctx context.Context) ([]*models.Item, error)
}

// Catalog creates items with their auctions and serves auction reads.
type Catalog struct {
	store CatalogStore
	clock Clock
	log   zerolog.Logger
}

// NewCatalog creates a catalog. A nil clock uses the system clock.
func NewCatalog(store CatalogStore, clock Clock, log zerolog.Logger) *Catalog {
	if clock == nil {
		clock = defaultClock
	}
	return &Catalog{
		store: store,
		clock: clock,
		log:   log.With().Str("component", "catalog").Logger(),
	}
}

// CreateListing creates an item and its open auction. The owner is the
// default winner with an amount of zero until someone else bids.
func (c *Catalog) CreateListing(ctx context.Context, req models.CreateItemRequest) (*models.Item, *models.Auction, error) {
	now := c.clock.Now()
	if err := validateListing(req, now); err != nil {
		return nil, nil, err
	}

	item := &models.Item{
		ID:          uuid.NewString(),
		OwnerID:     strings.TrimSpace(req.OwnerID),
		Title:       req.Title,
		Condition:   req.Condition,
		Description: req.Description,
		CreatedAt:   now,
	}
	auction := &models.Auction{
		ID:           uuid.NewString(),
		ItemID:       item.ID,
		OwnerID:      item.OwnerID,
		Status:       models.AuctionStatusOpen,
		ClosingTime:  req.ClosingTime.UTC(),
		WinnerID:     item.OwnerID,
		WinnerAmount: decimal.Zero,
		Bids:         []models.Bid{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.store.CreateListing(ctx, item, auction); err != nil {
		return nil, nil, persistenceError(auction.ID, "create listing", err)
	}

	c.log.Info().
		Str("item_id", item.ID).
		Str("auction_id", auction.ID).
		Time("closing_time", auction.ClosingTime).
		Msg("listing created")
	return item, auction, nil
}

// Get returns a single auction.
func (c *Catalog) Get(ctx context.Context, auctionID string) (*models.Auction, error) {
	auction, err := c.store.FindByID(ctx, auctionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(KindNotFound, ReasonAuctionNotFound, auctionID, "auction not found", err)
		}
		return nil, persistenceError(auctionID, "load auction", err)
	}
	return auction, nil
}

// List returns auctions filtered by status. An empty status lists all.
func (c *Catalog) List(ctx context.Context, status models.AuctionStatus) ([]*models.Auction, error) {
	if status != "" && !status.Valid() {
		return nil, newError(KindValidation, ReasonInvalidListing, "", "status must be open or closed", nil)
	}
	auctions, err := c.store.List(ctx, status)
	if err != nil {
		return nil, persistenceError("", "list auctions", err)
	}
	if auctions == nil {
		auctions = []*models.Auction{}
	}
	return auctions, nil
}

// ListItems returns every listed item, oldest first.
func (c *Catalog) ListItems(ctx context.Context) ([]*models.Item, error) {
	items, err := c.store.ListItems(ctx)
	if err != nil {
		return nil, persistenceError("", "list items", err)
	}
	if items == nil {
		items = []*models.Item{}
	}
	return items, nil
}

func validateListing(req models.CreateItemRequest, now time.Time) error {
	invalid := func(msg string) error {
		return newError(KindValidation, ReasonInvalidListing, "", msg, nil)
	}
	switch {
	case strings.TrimSpace(req.OwnerID) == "":
		return invalid("owner id is required")
	case strings.TrimSpace(req.Title) == "":
		return invalid("title is required")
	case utf8.RuneCountInString(req.Title) > models.MaxTitleLength:
		return invalid("title is limited to 256 characters, use the description for item details")
	case !req.Condition.Valid():
		return invalid("condition must be new or used")
	case utf8.RuneCountInString(req.Description) > models.MaxDescriptionLength:
		return invalid("description is limited to 32768 characters")
	case req.ClosingTime.IsZero():
		return invalid("closing time is required")
	case !req.ClosingTime.After(now):
		return invalid("closing time must be in the future")
	}
	return nil
}
