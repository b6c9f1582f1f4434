package config

import (
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

type envTestConfig struct {
	Port int `env:"AUCTION_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig
	assert.NoError(t, ParseEnv(&cfg))
	check.Equal(t, 123, cfg.Port)
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("AUCTION_TEST_PORT", "not-an-int")

	var cfg envTestConfig
	err := ParseEnv(&cfg)
	assert.Error(t, err)
	check.True(t, strings.HasPrefix(err.Error(), "parse env:"))
}

func TestParseEnvNilTarget(t *testing.T) {
	check.Error(t, ParseEnv(nil))
}

func TestParseArgsNilFlagSet(t *testing.T) {
	check.Error(t, ParseArgs(nil, nil))
}

type sharedConfig struct {
	Store Store
	Redis Redis
	Sweep Sweep
}

func TestSharedDefaults(t *testing.T) {
	var cfg sharedConfig
	assert.NoError(t, ParseEnv(&cfg))

	check.Equal(t, "redis", cfg.Store.Driver)
	check.Equal(t, "localhost:6379", cfg.Redis.Addr)
	check.Equal(t, 10*time.Second, cfg.Sweep.Interval)
	check.Equal(t, time.Minute, cfg.Sweep.LockTTL)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("CLOSER_INTERVAL", "30s")

	var cfg sharedConfig
	assert.NoError(t, ParseEnv(&cfg))
	check.Equal(t, "sqlite", cfg.Store.Driver)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.Store.Bind(fs)
	cfg.Redis.Bind(fs)
	cfg.Sweep.Bind(fs)
	assert.NoError(t, ParseArgs(fs, []string{"-store", "bolt", "-interval", "1m"}))

	check.Equal(t, "bolt", cfg.Store.Driver)
	check.Equal(t, time.Minute, cfg.Sweep.Interval)
}
