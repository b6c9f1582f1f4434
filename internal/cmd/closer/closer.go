// Package closer parses auction-closer configuration and runs closing sweeps.
package closer

import (
	"context"
	"flag"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/danwhitston/auction-api/internal/auction"
	"github.com/danwhitston/auction-api/internal/cmd/entrypoint"
	"github.com/danwhitston/auction-api/internal/config"
	"github.com/danwhitston/auction-api/internal/redis"
	"github.com/danwhitston/auction-api/internal/service"
	"github.com/danwhitston/auction-api/internal/storage/backend"
)

// LockKey is the Redis key guarding closing sweeps across processes.
const LockKey = "auction-closer:lock"

// Config holds auction-closer configuration.
type Config struct {
	// Once runs a single sweep and exits, for cron-style scheduling.
	Once  bool `env:"CLOSER_ONCE" envDefault:"false"`
	Sweep config.Sweep
	Store config.Store
	Redis config.Redis
	NATS  config.NATS
	Log   config.Log
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.BoolVar(&cfg.Once, "once", cfg.Once, "run one sweep and exit")
	cfg.Sweep.Bind(fs)
	cfg.Store.Bind(fs)
	cfg.Redis.Bind(fs)
	cfg.NATS.Bind(fs)
	cfg.Log.Bind(fs)
	if err := config.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.Sweep.Interval <= 0 {
		return Config{}, fmt.Errorf("sweep interval must be positive, got %s", cfg.Sweep.Interval)
	}
	if cfg.Redis.Disabled && backend.NeedsRedis(cfg.Store.Driver) {
		return Config{}, fmt.Errorf("store driver %q requires redis", cfg.Store.Driver)
	}
	return cfg, nil
}

// Run closes overdue auctions, once or on every interval until ctx is done.
// With Redis available, sweeps are serialized across closer processes.
func Run(ctx context.Context, cfg Config, log zerolog.Logger) error {
	rc, err := entrypoint.ConnectRedis(cfg.Redis, log)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
	}

	nc, err := entrypoint.ConnectNATS(entrypoint.ServiceCloser, cfg.NATS, log)
	if err != nil {
		return err
	}
	if nc != nil {
		defer nc.Close()
	}

	store, err := backend.Open(ctx, cfg.Store, rc)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	publisher, err := entrypoint.Publishers(ctx, rc, nc, log)
	if err != nil {
		return err
	}

	opts := []auction.CloserOption{auction.WithAuctionTimeout(cfg.Sweep.AuctionTimeout)}
	if rc != nil {
		opts = append(opts, auction.WithSweepLock(redis.NewSweepLock(rc, LockKey, cfg.Sweep.LockTTL)))
	}
	svc := service.NewClosingService(auction.NewCloser(store, store, log, opts...), publisher, nil, log)

	if cfg.Once {
		result, err := svc.Sweep(ctx)
		if err != nil {
			return err
		}
		if len(result.Failed) > 0 {
			return fmt.Errorf("%d auctions failed to close", len(result.Failed))
		}
		return nil
	}

	log.Info().Dur("interval", cfg.Sweep.Interval).Msg("closer started")
	return svc.Run(ctx, cfg.Sweep.Interval)
}
