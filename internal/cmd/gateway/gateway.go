// Package gateway parses api-gateway configuration and runs the HTTP API.
package gateway

import (
	"context"
	"flag"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/danwhitston/auction-api/internal/auction"
	"github.com/danwhitston/auction-api/internal/cmd/entrypoint"
	"github.com/danwhitston/auction-api/internal/config"
	"github.com/danwhitston/auction-api/internal/handlers"
	"github.com/danwhitston/auction-api/internal/service"
	"github.com/danwhitston/auction-api/internal/storage/backend"
)

// Config holds api-gateway configuration.
type Config struct {
	HTTPAddr string `env:"SERVER_ADDR" envDefault:":8080"`
	Store    config.Store
	Redis    config.Redis
	NATS     config.NATS
	Log      config.Log
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	cfg.Store.Bind(fs)
	cfg.Redis.Bind(fs)
	cfg.NATS.Bind(fs)
	cfg.Log.Bind(fs)
	if err := config.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.Redis.Disabled && backend.NeedsRedis(cfg.Store.Driver) {
		return Config{}, fmt.Errorf("store driver %q requires redis", cfg.Store.Driver)
	}
	return cfg, nil
}

// Run connects the store and event transports and serves the API until ctx
// is done.
func Run(ctx context.Context, cfg Config, log zerolog.Logger) error {
	rc, err := entrypoint.ConnectRedis(cfg.Redis, log)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
	}

	nc, err := entrypoint.ConnectNATS(entrypoint.ServiceGateway, cfg.NATS, log)
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
	log.Info().Str("driver", cfg.Store.Driver).Msg("store ready")

	publisher, err := entrypoint.Publishers(ctx, rc, nc, log)
	if err != nil {
		return err
	}

	svc := service.NewBiddingService(
		auction.NewCatalog(store, nil, log),
		auction.NewAcceptor(store, store, nil, log),
		publisher,
		log,
	)
	// Let in-flight event publishes finish before the transports close.
	defer svc.Wait()

	router := handlers.NewHandler(svc, log).SetupRoutes()
	return entrypoint.ServeHTTP(ctx, entrypoint.NewHTTPServer(cfg.HTTPAddr, router), log)
}
