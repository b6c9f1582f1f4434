// Package archive keeps a queryable history of bids and auction results,
// fed by the archival worker from the auction event stream.
//
// Bids live in their own table keyed by auction with an index on
// (auction_id, amount DESC, submitted_at ASC), so the winning bid of an
// auction can be read with a single indexed lookup instead of scanning the
// auction document.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/danwhitston/auction-api/internal/events"
	"github.com/danwhitston/auction-api/internal/models"
	"github.com/danwhitston/auction-api/internal/storage"
	"github.com/danwhitston/auction-api/internal/storage/sqlstore"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bids (
		id TEXT PRIMARY KEY,
		auction_id TEXT NOT NULL,
		bidder_id TEXT NOT NULL,
		amount NUMERIC(12, 2) NOT NULL,
		submitted_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bids_auction_ranking ON bids(auction_id, amount DESC, submitted_at ASC)`,
	`CREATE INDEX IF NOT EXISTS idx_bids_bidder_id ON bids(bidder_id)`,
	`CREATE TABLE IF NOT EXISTS auction_results (
		auction_id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		winner_id TEXT NOT NULL,
		winner_amount NUMERIC(12, 2) NOT NULL,
		closed_at BIGINT NOT NULL
	)`,
}

// Result is an archived auction outcome.
type Result struct {
	AuctionID    string
	ItemID       string
	WinnerID     string
	WinnerAmount decimal.Decimal
	ClosedAt     time.Time
}

// Archive wraps the archive database connection.
type Archive struct {
	db      *sql.DB
	dialect sqlstore.Dialect
}

var _ events.Sink = (*Archive)(nil)

// Open connects to the archive database.
func Open(ctx context.Context, dialect sqlstore.Dialect, dsn string) (*Archive, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s dsn is required", dialect.Driver)
	}
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dialect == sqlstore.SQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	return &Archive{db: db, dialect: dialect}, nil
}

// InitSchema creates the archive tables.
func (a *Archive) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// RecordBid inserts a bid. Redelivered bids are ignored.
func (a *Archive) RecordBid(ctx context.Context, auctionID string, bid models.Bid) error {
	_, err := a.db.ExecContext(ctx, a.dialect.Rebind(`
		INSERT INTO bids (id, auction_id, bidder_id, amount, submitted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`), bid.ID, auctionID, bid.BidderID, bid.Amount.String(), bid.SubmittedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// RecordResult stores the outcome of a closed auction. Events without a
// close time fall back to their publish time.
func (a *Archive) RecordResult(ctx context.Context, event *models.AuctionEvent) error {
	closedAt := event.Timestamp
	if event.ClosedAt != nil {
		closedAt = *event.ClosedAt
	}
	_, err := a.db.ExecContext(ctx, a.dialect.Rebind(`
		INSERT INTO auction_results (auction_id, item_id, winner_id, winner_amount, closed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (auction_id) DO UPDATE SET
			winner_id = excluded.winner_id,
			winner_amount = excluded.winner_amount,
			closed_at = excluded.closed_at
	`), event.AuctionID, event.ItemID, event.WinnerID, event.WinnerAmount.String(), closedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}
	return nil
}

// WinningBid returns the highest bid of an auction, earliest first on ties.
// It returns storage.ErrNotFound when the auction has no archived bids.
func (a *Archive) WinningBid(ctx context.Context, auctionID string) (*models.Bid, error) {
	bids, err := a.queryBids(ctx, `
		SELECT id, bidder_id, amount, submitted_at
		FROM bids
		WHERE auction_id = ?
		ORDER BY amount DESC, submitted_at ASC, id ASC
		LIMIT 1
	`, auctionID)
	if err != nil {
		return nil, err
	}
	if len(bids) == 0 {
		return nil, storage.ErrNotFound
	}
	return bids[0], nil
}

// BidHistory retrieves the most recent bids for an auction, newest first.
func (a *Archive) BidHistory(ctx context.Context, auctionID string, limit int) ([]*models.Bid, error) {
	return a.queryBids(ctx, `
		SELECT id, bidder_id, amount, submitted_at
		FROM bids
		WHERE auction_id = ?
		ORDER BY submitted_at DESC
		LIMIT ?
	`, auctionID, limit)
}

// Result returns the archived outcome of an auction.
func (a *Archive) Result(ctx context.Context, auctionID string) (*Result, error) {
	row := a.db.QueryRowContext(ctx, a.dialect.Rebind(`
		SELECT auction_id, item_id, winner_id, winner_amount, closed_at
		FROM auction_results
		WHERE auction_id = ?
	`), auctionID)

	var (
		r        Result
		closedAt int64
	)
	if err := row.Scan(&r.AuctionID, &r.ItemID, &r.WinnerID, &r.WinnerAmount, &closedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query result: %w", err)
	}
	r.ClosedAt = time.Unix(0, closedAt).UTC()
	return &r, nil
}

func (a *Archive) queryBids(ctx context.Context, query string, args ...any) ([]*models.Bid, error) {
	rows, err := a.db.QueryContext(ctx, a.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	var bids []*models.Bid
	for rows.Next() {
		var (
			bid         models.Bid
			submittedAt int64
		)
		if err := rows.Scan(&bid.ID, &bid.BidderID, &bid.Amount, &submittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bid.SubmittedAt = time.Unix(0, submittedAt).UTC()
		bids = append(bids, &bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bids: %w", err)
	}
	return bids, nil
}

// Close closes the database connection
func (a *Archive) Close() error {
	return a.db.Close()
}
