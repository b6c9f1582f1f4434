// Package entrypoint holds the connection and lifecycle helpers shared by
// the service commands.
package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/danwhitston/auction-api/internal/config"
	"github.com/danwhitston/auction-api/internal/events"
	"github.com/danwhitston/auction-api/internal/redis"
)

const shutdownTimeout = 30 * time.Second

// Service names used in logs and NATS connection names.
const (
	ServiceGateway   = "api-gateway"
	ServiceCloser    = "auction-closer"
	ServiceArchiver  = "archival-worker"
	ServiceBroadcast = "broadcast-service"
)

// ConnectRedis connects to Redis, or returns nil when Redis is disabled.
func ConnectRedis(cfg config.Redis, log zerolog.Logger) (*redis.Client, error) {
	if cfg.Disabled {
		log.Info().Msg("redis disabled")
		return nil, nil
	}
	rc, err := redis.NewClient(cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, err
	}
	log.Info().Str("addr", cfg.Addr).Msg("connected to redis")
	return rc, nil
}

// ConnectNATS connects to NATS, or returns nil when NATS is disabled.
func ConnectNATS(service string, cfg config.NATS, log zerolog.Logger) (*nats.Conn, error) {
	if cfg.Disabled {
		log.Info().Msg("nats disabled")
		return nil, nil
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name(service),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info().Str("url", cfg.URL).Msg("connected to nats")
	return nc, nil
}

// Publishers builds the event fan-out for whichever transports are
// connected. It returns nil when neither is.
func Publishers(ctx context.Context, rc *redis.Client, nc *nats.Conn, log zerolog.Logger) (events.Publisher, error) {
	var multi events.Multi
	if rc != nil {
		multi = append(multi, redis.NewPublisher(rc))
	}
	if nc != nil {
		js, err := events.NewJetStreamPublisher(ctx, nc, log)
		if err != nil {
			return nil, err
		}
		multi = append(multi, js)
	}
	if len(multi) == 0 {
		return nil, nil
	}
	return multi, nil
}

// ServeHTTP runs srv until ctx is done and then shuts it down gracefully.
func ServeHTTP(ctx context.Context, srv *http.Server, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("server stopped gracefully")
	return nil
}

// NewHTTPServer returns a server with the timeouts every service uses.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
