package subscriptions

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PendingExpirer expires pending records that have not moved since a cutoff.
type PendingExpirer interface {
	ExpirePending(ctx context.Context, before time.Time) (int64, error)
}

// Sweeper periodically expires abandoned checkouts. A pending record whose
// checkout was never completed receives no webhook, so nothing else moves it.
type Sweeper struct {
	Records  PendingExpirer
	MaxAge   time.Duration
	Interval time.Duration
	Logger   zerolog.Logger
	Now      func() time.Time
}

// SweepOnce runs a single pass and returns the number of records expired.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	n, err := s.Records.ExpirePending(ctx, now().Add(-s.MaxAge))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Logger.Info().Int64("expired", n).Dur("max_age", s.MaxAge).Msg("expired abandoned checkouts")
	}
	return n, nil
}

// Run sweeps every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Logger.Info().Dur("interval", s.Interval).Msg("pending checkout sweeper started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.Logger.Error().Err(err).Msg("pending checkout sweep failed")
			}
		}
	}
}
