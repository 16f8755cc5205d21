package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/southwestptfs/flightdeck/internal/apperr"
	"github.com/southwestptfs/flightdeck/internal/boardingpass"
	"github.com/southwestptfs/flightdeck/internal/clock"
	"github.com/southwestptfs/flightdeck/internal/database"
	"github.com/southwestptfs/flightdeck/internal/model"
	"github.com/southwestptfs/flightdeck/internal/repository"
)

// FlightService is the staff side of the flight table.
type FlightService struct {
	DB        *database.DB
	Flights   *repository.FlightRepo
	Bookings  *repository.BookingRepo
	Artifacts boardingpass.Store
	Relay     Relay
	Clock     clock.Clock
	Log       *slog.Logger
}

// FlightPatch carries the editable fields of an update. Nil fields are left
// unchanged.
type FlightPatch struct {
	Origin           *string
	Destination      *string
	Aircraft         *string
	Departure        *time.Time
	Seats            *int
	AcftReg          *string
	DeptGate         *string
	ArrGate          *string
	CodeshareIDs     *string
	Host             *string
	DiscordEventID   *string
	RobloxServerLink *string
}

// Create stores a new flight with an empty ledger.
func (s *FlightService) Create(ctx context.Context, f model.Flight) (model.Flight, error) {
	f.ID = strings.TrimSpace(f.ID)
	if f.ID == "" {
		return model.Flight{}, apperr.Invalid("flight id is required")
	}
	if f.Seats < 0 {
		return model.Flight{}, apperr.Invalid("seats must not be negative")
	}
	f.Booked = 0
	f.Departure = f.Departure.UTC()
	if err := s.Flights.Create(ctx, f); err != nil {
		return model.Flight{}, err
	}
	s.Log.Info("flight created", slog.String("flight_id", f.ID), slog.Int("seats", f.Seats))
	return f, nil
}

func (s *FlightService) Get(ctx context.Context, id string) (model.Flight, error) {
	return s.Flights.GetByID(ctx, id)
}

func (s *FlightService) List(ctx context.Context) ([]model.Flight, error) {
	fs, err := s.Flights.List(ctx)
	if fs == nil && err == nil {
		fs = []model.Flight{}
	}
	return fs, err
}

// Update applies p under the flight lock. Seats may not drop below the
// seats already booked and a new departure must lie in the future.
func (s *FlightService) Update(ctx context.Context, id string, p FlightPatch) (model.Flight, error) {
	var out model.Flight
	err := s.DB.InTx(ctx, func(tx *sql.Tx) error {
		f, err := s.Flights.LockTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.Seats != nil {
			if *p.Seats < 0 {
				return apperr.Invalid("seats must not be negative")
			}
			if *p.Seats < f.Booked {
				return apperr.Invalid("seats cannot be lower than the number of booked seats")
			}
			f.Seats = *p.Seats
		}
		if p.Departure != nil {
			if !p.Departure.After(s.Clock.Now()) {
				return apperr.Invalid("departure must be in the future")
			}
			f.Departure = p.Departure.UTC()
		}
		set(&f.Origin, p.Origin)
		set(&f.Destination, p.Destination)
		set(&f.Aircraft, p.Aircraft)
		set(&f.AcftReg, p.AcftReg)
		set(&f.DeptGate, p.DeptGate)
		set(&f.ArrGate, p.ArrGate)
		set(&f.CodeshareIDs, p.CodeshareIDs)
		set(&f.Host, p.Host)
		set(&f.DiscordEventID, p.DiscordEventID)
		set(&f.RobloxServerLink, p.RobloxServerLink)
		if err := s.Flights.UpdateTx(ctx, tx, f); err != nil {
			return err
		}
		out = f
		return nil
	})
	if err != nil {
		return model.Flight{}, err
	}
	s.Log.Info("flight updated", slog.String("flight_id", id))
	return out, nil
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Delete removes a flight and all its bookings. Passengers are notified
// of the cancellation and cached passes are dropped after commit.
func (s *FlightService) Delete(ctx context.Context, id string) error {
	f, bookings, err := s.delete(ctx, id)
	if err != nil {
		return err
	}
	for _, b := range bookings {
		if err := s.Relay.BookingCancelled(b, f, false); err != nil {
			s.Log.Error("cancellation notification failed",
				slog.String("confirmation", b.Confirmation), slog.Any("err", err))
		}
	}
	s.Log.Info("flight deleted", slog.String("flight_id", id), slog.Int("bookings", len(bookings)))
	return nil
}

// DeleteDeparted removes every flight that departed before cutoff, without
// notifying passengers. A flight that fails to delete is logged and skipped;
// the returned error joins every such failure.
func (s *FlightService) DeleteDeparted(ctx context.Context, cutoff time.Time) ([]string, error) {
	flights, err := s.Flights.List(ctx)
	if err != nil {
		return nil, err
	}
	var (
		removed []string
		errs    []error
	)
	for _, f := range flights {
		if !f.Departure.Before(cutoff) {
			continue
		}
		if _, _, err := s.delete(ctx, f.ID); err != nil {
			s.Log.Error("departed flight not removed", slog.String("flight_id", f.ID), slog.Any("err", err))
			errs = append(errs, fmt.Errorf("delete flight %s: %w", f.ID, err))
			continue
		}
		removed = append(removed, f.ID)
	}
	return removed, errors.Join(errs...)
}

func (s *FlightService) delete(ctx context.Context, id string) (model.Flight, []model.Booking, error) {
	var (
		f        model.Flight
		bookings []model.Booking
	)
	err := s.DB.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		if f, err = s.Flights.LockTx(ctx, tx, id); err != nil {
			return err
		}
		if bookings, err = s.Bookings.ListByFlightTx(ctx, tx, id); err != nil {
			return err
		}
		if err := s.Bookings.DeleteByFlightTx(ctx, tx, id); err != nil {
			return err
		}
		return s.Flights.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return model.Flight{}, nil, err
	}
	if err := s.Artifacts.DeleteFlight(ctx, id); err != nil {
		s.Log.Error("boarding pass cleanup failed", slog.String("flight_id", id), slog.Any("err", err))
	}
	return f, bookings, nil
}
