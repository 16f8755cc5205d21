package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/southwestptfs/flightdeck/internal/clock"
)

// Sweeper periodically deletes flights that departed more than Grace ago.
type Sweeper struct {
	Flights  *FlightService
	Interval time.Duration
	Grace    time.Duration
	Clock    clock.Clock
	Log      *slog.Logger
}

// Run sweeps once immediately and then every Interval until ctx ends.
func (s *Sweeper) Run(ctx context.Context) {
	s.RunOnce(ctx)
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Failures are logged, never returned.
func (s *Sweeper) RunOnce(ctx context.Context) (removed []string) {
	defer func() {
		if r := recover(); r != nil {
			s.Log.Error("cleanup panicked", slog.String("panic", fmt.Sprint(r)))
		}
	}()
	cutoff := s.Clock.Now().Add(-s.Grace)
	removed, err := s.Flights.DeleteDeparted(ctx, cutoff)
	if err != nil {
		s.Log.Error("cleanup incomplete", slog.Any("err", err), slog.Int("removed", len(removed)))
	}
	if len(removed) > 0 {
		s.Log.Info("departed flights removed", slog.Any("flight_ids", removed))
	}
	return removed
}
