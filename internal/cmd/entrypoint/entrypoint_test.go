package entrypoint

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/rs/zerolog"

	"github.com/danwhitston/auction-api/internal/config"
	"github.com/danwhitston/auction-api/internal/events"
)

func TestDisabledTransports(t *testing.T) {
	rc, err := ConnectRedis(config.Redis{Disabled: true}, zerolog.Nop())
	assert.NoError(t, err)
	check.True(t, rc == nil)

	nc, err := ConnectNATS(ServiceGateway, config.NATS{Disabled: true}, zerolog.Nop())
	assert.NoError(t, err)
	check.True(t, nc == nil)

	p, err := Publishers(context.Background(), nil, nil, zerolog.Nop())
	assert.NoError(t, err)
	check.True(t, p == nil)
}

func TestPublishersWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := ConnectRedis(config.Redis{Addr: mr.Addr()}, zerolog.Nop())
	assert.NoError(t, err)
	defer rc.Close()

	p, err := Publishers(context.Background(), rc, nil, zerolog.Nop())
	assert.NoError(t, err)
	multi, ok := p.(events.Multi)
	assert.True(t, ok)
	check.Equal(t, 1, len(multi))
}

func TestServeHTTPStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewHTTPServer("127.0.0.1:0", http.NotFoundHandler())

	done := make(chan error, 1)
	go func() { done <- ServeHTTP(ctx, srv, zerolog.Nop()) }()
	cancel()

	select {
	case err := <-done:
		check.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeHTTPListenError(t *testing.T) {
	srv := NewHTTPServer("invalid-address", http.NotFoundHandler())
	err := ServeHTTP(context.Background(), srv, zerolog.Nop())
	check.Error(t, err)
}
