package broadcast

import (
	"context"
	"flag"
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/danwhitston/auction-api/internal/redis"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("broadcast-service", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	assert.NoError(t, err)
	check.Equal(t, ":8081", cfg.HTTPAddr)
}

func TestParseConfigRequiresRedis(t *testing.T) {
	fs := flag.NewFlagSet("broadcast-service", flag.ContinueOnError)
	_, err := ParseConfig(fs, []string{"-no-redis"})
	check.Error(t, err)
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (b *recordingBroadcaster) Broadcast(auctionID string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sent == nil {
		b.sent = make(map[string][]string)
	}
	b.sent[auctionID] = append(b.sent[auctionID], string(payload))
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, msgs := range b.sent {
		n += len(msgs)
	}
	return n
}

func TestForward(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages := make(chan *redis.Message, 2)
	messages <- &redis.Message{AuctionID: "a1", Payload: `{"type":"bid_accepted"}`}
	messages <- &redis.Message{AuctionID: "a2", Payload: `{"type":"auction_closed"}`}

	b := &recordingBroadcaster{}
	done := make(chan struct{})
	go func() {
		Forward(ctx, messages, b)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for b.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	check.Equal(t, []string{`{"type":"bid_accepted"}`}, b.sent["a1"])
	check.Equal(t, []string{`{"type":"auction_closed"}`}, b.sent["a2"])
}
