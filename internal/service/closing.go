package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/danwhitston/auction-api/internal/auction"
	"github.com/danwhitston/auction-api/internal/events"
)

// ClosingService runs closer sweeps and announces each closed auction.
type ClosingService struct {
	closer    *auction.Closer
	publisher events.Publisher
	clock     auction.Clock
	log       zerolog.Logger
}

// NewClosingService creates a closing service. publisher may be nil and
// clock defaults to the system clock.
func NewClosingService(closer *auction.Closer, publisher events.Publisher, clock auction.Clock, log zerolog.Logger) *ClosingService {
	if clock == nil {
		clock = auction.ClockFunc(func() time.Time { return time.Now().UTC() })
	}
	return &ClosingService{
		closer:    closer,
		publisher: publisher,
		clock:     clock,
		log:       log.With().Str("component", "closing_service").Logger(),
	}
}

// Sweep closes every overdue auction and publishes an auction_closed event
// for each one. Publishing failures are logged only.
func (s *ClosingService) Sweep(ctx context.Context) (*auction.SweepResult, error) {
	result, err := s.closer.Run(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if s.publisher == nil {
		return result, nil
	}
	for _, a := range result.Closed {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		publish(pubCtx, s.publisher, events.AuctionClosed(a), s.log)
		cancel()
	}
	return result, nil
}

// Run sweeps once immediately and then on every tick of interval until ctx
// is done. Sweep errors are logged and the loop carries on.
func (s *ClosingService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Error().Err(err).Msg("closing sweep failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
