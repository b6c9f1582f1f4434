package archiver

import (
	"flag"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("archival-worker", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	assert.NoError(t, err)

	check.Equal(t, "postgres", cfg.Driver)
	check.Equal(t, "archival-worker", cfg.Durable)
	check.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("ARCHIVE_DRIVER", "sqlite")

	fs := flag.NewFlagSet("archival-worker", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-dsn", "data/archive.db", "-consumer", "archive-2"})
	assert.NoError(t, err)

	check.Equal(t, "sqlite", cfg.Driver)
	check.Equal(t, "data/archive.db", cfg.DSN)
	check.Equal(t, "archive-2", cfg.Durable)
}

func TestParseConfigUnknownDriver(t *testing.T) {
	fs := flag.NewFlagSet("archival-worker", flag.ContinueOnError)
	_, err := ParseConfig(fs, []string{"-driver", "mysql"})
	check.Error(t, err)
}
