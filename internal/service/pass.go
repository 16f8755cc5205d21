package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/southwestptfs/flightdeck/internal/airport"
	"github.com/southwestptfs/flightdeck/internal/apperr"
	"github.com/southwestptfs/flightdeck/internal/boarding"
	"github.com/southwestptfs/flightdeck/internal/boardingpass"
	"github.com/southwestptfs/flightdeck/internal/model"
	"github.com/southwestptfs/flightdeck/internal/repository"
)

// PassRenderer draws a pass snapshot into image bytes.
type PassRenderer interface {
	Render(p boardingpass.Pass) ([]byte, error)
}

// PassService issues boarding passes, serving the cached artifact when one
// exists.
type PassService struct {
	Flights   *repository.FlightRepo
	Bookings  *repository.BookingRepo
	Artifacts boardingpass.Store
	Renderer  PassRenderer
	Airports  *airport.Table
	Log       *slog.Logger
}

// Render returns the pass for code. With cacheOnly set a missing artifact
// is reported as apperr.ErrArtifactNotFound instead of being drawn.
func (s *PassService) Render(ctx context.Context, code string, cacheOnly bool) ([]byte, error) {
	b, err := s.Bookings.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, b, cacheOnly)
}

func (s *PassService) render(ctx context.Context, b model.Booking, cacheOnly bool) ([]byte, error) {
	data, err := s.Artifacts.Get(ctx, b.FlightID, b.Confirmation)
	switch {
	case err == nil:
		return data, nil
	case !errors.Is(err, apperr.ErrArtifactNotFound):
		s.Log.Warn("boarding pass cache read failed", slog.String("confirmation", b.Confirmation), slog.Any("err", err))
	}
	if cacheOnly {
		return nil, apperr.ErrArtifactNotFound
	}

	f, err := s.Flights.GetByID(ctx, b.FlightID)
	if err != nil {
		return nil, err
	}
	data, err = s.Renderer.Render(s.snapshot(b, f))
	if err != nil {
		s.Log.Error("boarding pass render failed", slog.String("confirmation", b.Confirmation), slog.Any("err", err))
		return nil, apperr.RenderFailed(err)
	}
	if err := s.Artifacts.Put(ctx, b.FlightID, b.Confirmation, data); err != nil {
		s.Log.Error("boarding pass cache write failed", slog.String("confirmation", b.Confirmation), slog.Any("err", err))
	}
	return data, nil
}

func (s *PassService) snapshot(b model.Booking, f model.Flight) boardingpass.Pass {
	passenger := b.Username
	if passenger == "" {
		passenger = "Guest"
	}
	var checkedIn time.Time
	if b.CheckedInAt != nil {
		checkedIn = *b.CheckedInAt
	}
	var position string
	if b.HasPosition() {
		position = boarding.Position{Group: b.BoardingGroup, Number: b.BoardingPosition}.String()
	}
	from, _ := s.Airports.Find(f.Origin)
	to, _ := s.Airports.Find(f.Destination)
	return boardingpass.Pass{
		Passenger:    passenger,
		Confirmation: b.Confirmation,
		FlightID:     f.ID,
		Gate:         f.DeptGate,
		Aircraft:     f.Aircraft,
		Departure:    f.Departure,
		CheckedInAt:  checkedIn,
		Position:     position,
		FromCode:     f.Origin,
		ToCode:       f.Destination,
		From:         from,
		To:           to,
	}
}
