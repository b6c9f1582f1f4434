// Package sqlstore provides an auction store on PostgreSQL or SQLite.
//
// Each auction is one row holding the JSON document plus the columns the
// closer queries on (status, closing time). Save is a single-row upsert.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/danwhitston/auction-api/internal/models"
	"github.com/danwhitston/auction-api/internal/storage"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		document TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS auctions (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL REFERENCES items(id),
		status TEXT NOT NULL,
		closing_time BIGINT NOT NULL,
		document TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_auctions_status_closing ON auctions(status, closing_time)`,
}

// Store persists auctions in a SQL database.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ storage.Store = (*Store)(nil)

// Open connects to the database, configures the pool and applies the schema.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
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

	if dialect == SQLite {
		// SQLite allows one writer at a time.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SQLiteDSN builds a modernc.org/sqlite DSN for a database file.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// FindByID loads one auction.
func (s *Store) FindByID(ctx context.Context, auctionID string) (*models.Auction, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT document FROM auctions WHERE id = ?`), auctionID)

	var doc string
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query auction: %w", err)
	}
	return decodeAuction(doc)
}

// FindOpenOverdue returns open auctions closing at or before now. The
// closing_time column has millisecond precision, so rows from now's
// millisecond are checked against the document.
func (s *Store) FindOpenOverdue(ctx context.Context, now time.Time) ([]*models.Auction, error) {
	auctions, err := s.query(ctx, `
		SELECT document FROM auctions
		WHERE status = ? AND closing_time <= ?
		ORDER BY closing_time, id
	`, string(models.AuctionStatusOpen), now.UnixMilli())
	if err != nil {
		return nil, err
	}
	out := auctions[:0]
	for _, a := range auctions {
		if a.IsOverdue(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

// List returns auctions with the given status, or all when status is empty.
func (s *Store) List(ctx context.Context, status models.AuctionStatus) ([]*models.Auction, error) {
	if status == "" {
		return s.query(ctx, `SELECT document FROM auctions ORDER BY closing_time, id`)
	}
	return s.query(ctx, `SELECT document FROM auctions WHERE status = ? ORDER BY closing_time, id`, string(status))
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*models.Auction, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*models.Auction
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		a, err := decodeAuction(doc)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate auctions: %w", err)
	}
	return auctions, nil
}

// Save upserts the auction row.
func (s *Store) Save(ctx context.Context, auction *models.Auction) error {
	doc, err := json.Marshal(auction)
	if err != nil {
		return fmt.Errorf("failed to encode auction: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.dialect.Rebind(`
		INSERT INTO auctions (id, item_id, status, closing_time, document)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			closing_time = excluded.closing_time,
			document = excluded.document
	`), auction.ID, auction.ItemID, string(auction.Status), auction.ClosingTime.UnixMilli(), string(doc))
	if err != nil {
		return fmt.Errorf("failed to save auction: %w", err)
	}
	return nil
}

// OwnerOf returns the owner of an item.
func (s *Store) OwnerOf(ctx context.Context, itemID string) (string, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT owner_id FROM items WHERE id = ?`), itemID)

	var ownerID string
	if err := row.Scan(&ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("failed to query item: %w", err)
	}
	return ownerID, nil
}

// ListItems returns every item. created_at holds milliseconds, so rows are
// re-sorted on the decoded creation time.
func (s *Store) ListItems(ctx context.Context) ([]*models.Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM items ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := []*models.Item{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		var item models.Item
		if err := json.Unmarshal([]byte(doc), &item); err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	storage.SortByCreatedAt(items)
	return items, nil
}

// CreateListing inserts the item and its auction in one transaction.
func (s *Store) CreateListing(ctx context.Context, item *models.Item, auction *models.Auction) error {
	itemDoc, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode item: %w", err)
	}
	auctionDoc, err := json.Marshal(auction)
	if err != nil {
		return fmt.Errorf("failed to encode auction: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.dialect.Rebind(`
		INSERT INTO items (id, owner_id, document, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`), item.ID, item.OwnerID, string(itemDoc), item.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return storage.ErrConflict
	}

	res, err = tx.ExecContext(ctx, s.dialect.Rebind(`
		INSERT INTO auctions (id, item_id, status, closing_time, document)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`), auction.ID, auction.ItemID, string(auction.Status), auction.ClosingTime.UnixMilli(), string(auctionDoc))
	if err != nil {
		return fmt.Errorf("failed to insert auction: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return storage.ErrConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit listing: %w", err)
	}
	return nil
}

func decodeAuction(doc string) (*models.Auction, error) {
	var a models.Auction
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		return nil, fmt.Errorf("failed to decode auction: %w", err)
	}
	return &a, nil
}
