package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/danwhitston/auction-api/internal/storage"
	"github.com/danwhitston/auction-api/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := Open(filepath.Join(t.TempDir(), "auctions.db"))
		assert.NoError(t, err)
		return s
	})
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auctions.db")
	closing := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s, err := Open(path)
	assert.NoError(t, err)
	item, a := storagetest.Listing("a1", "owner", closing)
	assert.NoError(t, s.CreateListing(context.Background(), item, a))
	assert.NoError(t, s.Close())

	s, err = Open(path)
	assert.NoError(t, err)
	defer s.Close()

	got, err := s.FindByID(context.Background(), "a1")
	assert.NoError(t, err)
	check.Equal(t, "owner", got.OwnerID)
}
