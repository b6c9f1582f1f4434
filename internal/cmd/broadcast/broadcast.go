// Package broadcast parses broadcast-service configuration and bridges Redis
// auction events to WebSocket watchers.
package broadcast

import (
	"context"
	"errors"
	"flag"

	"github.com/rs/zerolog"

	"github.com/danwhitston/auction-api/internal/cmd/entrypoint"
	"github.com/danwhitston/auction-api/internal/config"
	"github.com/danwhitston/auction-api/internal/redis"
	"github.com/danwhitston/auction-api/internal/websocket"
)

// Config holds broadcast-service configuration.
type Config struct {
	HTTPAddr string `env:"SERVER_ADDR" envDefault:":8081"`
	Redis    config.Redis
	Log      config.Log
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	cfg.Redis.Bind(fs)
	cfg.Log.Bind(fs)
	if err := config.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.Redis.Disabled {
		return Config{}, errors.New("broadcast service requires redis")
	}
	return cfg, nil
}

// Run subscribes to every auction event channel and serves WebSocket
// watchers until ctx is done.
func Run(ctx context.Context, cfg Config, log zerolog.Logger) error {
	rc, err := entrypoint.ConnectRedis(cfg.Redis, log)
	if err != nil {
		return err
	}
	defer rc.Close()

	subscriber := redis.NewSubscriber(rc, log)
	if err := subscriber.SubscribeToPattern(ctx, redis.EventPattern); err != nil {
		return err
	}
	defer subscriber.Close()

	manager := websocket.NewManager(log)
	go manager.Run(ctx)

	messages := make(chan *redis.Message, 256)
	go func() {
		if err := subscriber.Listen(ctx, messages); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("redis listener stopped")
		}
	}()
	go Forward(ctx, messages, manager)

	router := websocket.NewHandler(manager).SetupRoutes()
	return entrypoint.ServeHTTP(ctx, entrypoint.NewHTTPServer(cfg.HTTPAddr, router), log)
}

// Broadcaster delivers a payload to an auction's watchers.
type Broadcaster interface {
	Broadcast(auctionID string, payload []byte)
}

// Forward relays subscriber messages to b until ctx is done.
func Forward(ctx context.Context, messages <-chan *redis.Message, b Broadcaster) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-messages:
			b.Broadcast(msg.AuctionID, []byte(msg.Payload))
		}
	}
}
