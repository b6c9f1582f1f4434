package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/danwhitston/auction-api/internal/storage"
	"github.com/danwhitston/auction-api/internal/storage/storagetest"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), SQLite, SQLiteDSN(filepath.Join(t.TempDir(), "auctions.db")))
	assert.NoError(t, err)
	return s
}

func TestStoreSQLite(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return openSQLite(t) })
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Postgres, " ")
	check.Error(t, err)
}

func TestOpenAppliesSchemaIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auctions.db")
	for i := 0; i < 2; i++ {
		s, err := Open(context.Background(), SQLite, SQLiteDSN(path))
		assert.NoError(t, err)
		assert.NoError(t, s.Close())
	}
}

func TestRebind(t *testing.T) {
	query := `SELECT document FROM auctions WHERE status = ? AND closing_time <= ?`

	check.Equal(t, query, SQLite.Rebind(query))
	check.Equal(t,
		`SELECT document FROM auctions WHERE status = $1 AND closing_time <= $2`,
		Postgres.Rebind(query))
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("postgres")
	assert.NoError(t, err)
	check.Equal(t, Postgres, d, cmp.AllowUnexported(Dialect{}))

	d, err = DialectFor("sqlite")
	assert.NoError(t, err)
	check.Equal(t, SQLite, d, cmp.AllowUnexported(Dialect{}))

	_, err = DialectFor("mysql")
	check.Error(t, err)
}
