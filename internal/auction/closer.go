package auction

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/danwhitston/auction-api/internal/models"
	"github.com/danwhitston/auction-api/internal/storage"
)

// SweepLock serializes sweeps across processes.
type SweepLock interface {
	// Acquire takes the lock. acquired is false when another holder has it.
	Acquire(ctx context.Context) (release func(context.Context) error, acquired bool, err error)
}

// SweepResult summarizes one closer run.
type SweepResult struct {
	// Closed holds the auctions closed by this run, as saved.
	Closed []*models.Auction
	// Failed holds one entry per auction that could not be closed.
	Failed []SweepFailure
	// Skipped is set when another process held the sweep lock.
	Skipped bool
}

// SweepFailure records why one auction could not be closed.
type SweepFailure struct {
	AuctionID string
	Err       error
}

// Closer transitions overdue auctions to closed and computes their winners.
// It is the only component that moves an auction to its terminal state.
type Closer struct {
	auctions       AuctionStore
	owners         OwnerLookup
	lock           SweepLock
	auctionTimeout time.Duration
	log            zerolog.Logger

	mu sync.Mutex
}

// CloserOption configures a Closer.
type CloserOption func(*Closer)

// WithSweepLock serializes sweeps across processes using lock.
func WithSweepLock(lock SweepLock) CloserOption {
	return func(c *Closer) { c.lock = lock }
}

// WithAuctionTimeout bounds the storage round trips spent on each auction.
func WithAuctionTimeout(d time.Duration) CloserOption {
	return func(c *Closer) { c.auctionTimeout = d }
}

// NewCloser creates an auction closer.
func NewCloser(auctions AuctionStore, owners OwnerLookup, log zerolog.Logger, opts ...CloserOption) *Closer {
	c := &Closer{
		auctions: auctions,
		owners:   owners,
		log:      log.With().Str("component", "auction_closer").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run closes every open auction whose closing time is at or before now.
//
// Each auction is re-read, marked closed, has its winner recomputed from its
// full bid sequence, and is saved. A failure on one auction is logged and
// recorded in the result; the sweep carries on with the rest. Auctions
// already closed are skipped, so running again over the same set is a no-op.
// Runs on the same Closer never overlap.
//
// Run returns an error only when the overdue set cannot be read or the sweep
// lock cannot be consulted.
func (c *Closer) Run(ctx context.Context, now time.Time) (*SweepResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := &SweepResult{}

	if c.lock != nil {
		release, acquired, err := c.lock.Acquire(ctx)
		if err != nil {
			return nil, persistenceError("", "acquire sweep lock", err)
		}
		if !acquired {
			c.log.Info().Msg("sweep lock held elsewhere, skipping run")
			result.Skipped = true
			return result, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				c.log.Error().Err(err).Msg("failed to release sweep lock")
			}
		}()
	}

	overdue, err := c.auctions.FindOpenOverdue(ctx, now)
	if err != nil {
		c.log.Error().Err(err).Msg("overdue auctions query failed")
		return nil, persistenceError("", "find overdue auctions", err)
	}

	for _, candidate := range overdue {
		if err := ctx.Err(); err != nil {
			result.Failed = append(result.Failed, SweepFailure{AuctionID: candidate.ID, Err: err})
			continue
		}

		closed, err := c.closeOne(ctx, candidate.ID, now)
		if err != nil {
			c.log.Error().Err(err).Str("auction_id", candidate.ID).Msg("failed to close auction")
			result.Failed = append(result.Failed, SweepFailure{AuctionID: candidate.ID, Err: err})
			continue
		}
		if closed == nil {
			continue
		}

		c.log.Info().
			Str("auction_id", closed.ID).
			Str("winner_id", closed.WinnerID).
			Stringer("winner_amount", closed.WinnerAmount).
			Int("bids", len(closed.Bids)).
			Msg("auction closed")
		result.Closed = append(result.Closed, closed)
	}

	c.log.Info().
		Int("candidates", len(overdue)).
		Int("closed", len(result.Closed)).
		Int("failed", len(result.Failed)).
		Msg("sweep complete")
	return result, nil
}

// closeOne closes a single auction. It returns nil, nil when the auction no
// longer needs closing.
func (c *Closer) closeOne(ctx context.Context, auctionID string, now time.Time) (*models.Auction, error) {
	if c.auctionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.auctionTimeout)
		defer cancel()
	}

	auction, err := c.auctions.FindByID(ctx, auctionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(KindNotFound, ReasonAuctionNotFound, auctionID, "auction not found", err)
		}
		return nil, persistenceError(auctionID, "load auction", err)
	}
	if auction.Status == models.AuctionStatusClosed || !auction.IsOverdue(now) {
		return nil, nil
	}

	defaultWinner := auction.OwnerID
	if defaultWinner == "" {
		defaultWinner, err = c.owners.OwnerOf(ctx, auction.ItemID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, newError(KindNotFound, ReasonItemNotFound, auctionID, "item "+auction.ItemID+" not found", err)
			}
			return nil, persistenceError(auctionID, "look up item owner", err)
		}
	}

	auction.Status = models.AuctionStatusClosed
	Reconcile(auction, defaultWinner)
	closedAt := now
	auction.ClosedAt = &closedAt
	auction.UpdatedAt = now

	if err := c.auctions.Save(ctx, auction); err != nil {
		return nil, persistenceError(auctionID, "save closed auction", err)
	}
	return auction, nil
}
