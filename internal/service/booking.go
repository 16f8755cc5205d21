// Package service holds the booking lifecycle: seat reservation, check-in,
// boarding pass issue and flight administration. Services own their
// transactions; handlers only translate HTTP to calls and errors back.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/southwestptfs/flightdeck/internal/apperr"
	"github.com/southwestptfs/flightdeck/internal/boardingpass"
	"github.com/southwestptfs/flightdeck/internal/clock"
	"github.com/southwestptfs/flightdeck/internal/database"
	"github.com/southwestptfs/flightdeck/internal/model"
	"github.com/southwestptfs/flightdeck/internal/repository"
)

// BookingCutoff is how long before departure bookings and cancellations
// close.
const BookingCutoff = 45 * time.Minute

// Departed reports whether f is inside the booking cutoff at now.
func Departed(f model.Flight, now time.Time) bool {
	return !now.Before(f.Departure.Add(-BookingCutoff))
}

// BookingService creates and cancels bookings against the seat ledger.
type BookingService struct {
	DB        *database.DB
	Flights   *repository.FlightRepo
	Bookings  *repository.BookingRepo
	Codes     repository.CodeGenerator
	Artifacts boardingpass.Store
	Relay     Relay
	Clock     clock.Clock
	Log       *slog.Logger
}

// BookingView is a booking joined with its flight for listings.
type BookingView struct {
	model.Booking
	Flight *model.Flight `json:"flight"`
	Status string        `json:"status"`
}

const (
	StatusUpcoming = "Upcoming"
	StatusDeparted = "Flight has departed"
	StatusUnknown  = "Unknown"
)

// Create books one seat on flightID for the user. The flight row stays
// locked from the departure check to the ledger update, so two concurrent
// requests can never both take the last seat.
func (s *BookingService) Create(ctx context.Context, userID, username, flightID string) (model.Booking, error) {
	var (
		b      model.Booking
		flight model.Flight
	)
	err := s.DB.InTx(ctx, func(tx *sql.Tx) error {
		f, err := s.Flights.LockTx(ctx, tx, flightID)
		if err != nil {
			return err
		}
		now := s.Clock.Now()
		if Departed(f, now) {
			return apperr.ErrFlightDeparted
		}
		if f.Booked >= f.Seats {
			return apperr.ErrCapacityExceeded
		}
		dup, err := s.Bookings.HasBookingTx(ctx, tx, userID, flightID)
		if err != nil {
			return err
		}
		if dup {
			return apperr.ErrDuplicateBooking
		}

		attempts := max(s.Codes.MaxAttempts, 1)
		for i := 0; ; i++ {
			code, err := s.Codes.NewTx(ctx, tx, s.Bookings)
			if err != nil {
				return err
			}
			b = model.Booking{
				Confirmation: code,
				UserID:       userID,
				Username:     username,
				FlightID:     flightID,
				BookedAt:     now,
			}
			err = s.Bookings.InsertTx(ctx, tx, b)
			if err == nil {
				break
			}
			if !errors.Is(err, repository.ErrDuplicateKey) {
				return err
			}
			// Either the pair was booked meanwhile or the code collided.
			if dup, derr := s.Bookings.HasBookingTx(ctx, tx, userID, flightID); derr != nil {
				return derr
			} else if dup {
				return apperr.ErrDuplicateBooking
			}
			if i+1 >= attempts {
				return repository.ErrCodeSpaceExhausted
			}
		}

		if err := s.Flights.ReserveTx(ctx, tx, flightID); err != nil {
			return err
		}
		if _, err := s.Flights.VerifyTx(ctx, tx, flightID); err != nil {
			return err
		}
		flight = f
		flight.Booked++
		return nil
	})
	if err != nil {
		s.logReject(err, "booking rejected", slog.String("user_id", userID), slog.String("flight_id", flightID))
		return model.Booking{}, err
	}

	s.Log.Info("booking created",
		slog.String("confirmation", b.Confirmation),
		slog.String("user_id", userID), slog.String("flight_id", flightID))
	if err := s.Relay.BookingCreated(b, flight); err != nil {
		s.Log.Error("booking notification failed", slog.String("confirmation", b.Confirmation), slog.Any("err", err))
	}
	return b, nil
}

// Cancel removes a booking owned by requester and gives its seat back.
// A booking whose flight no longer exists is removed without the cutoff
// check.
func (s *BookingService) Cancel(ctx context.Context, code, requester string) error {
	var (
		b      model.Booking
		flight model.Flight
		orphan bool
	)
	// The first read only finds the flight to lock. The booking is read
	// again under that lock, since a concurrent cancel may have removed it.
	found, err := s.Bookings.GetByCode(ctx, code)
	if err == nil && found.UserID != requester {
		err = apperr.ErrNotAuthorized
	}
	if err == nil {
		err = s.DB.InTx(ctx, func(tx *sql.Tx) error {
			var err error
			flight, err = s.Flights.LockTx(ctx, tx, found.FlightID)
			switch {
			case errors.Is(err, apperr.ErrFlightNotFound):
				orphan = true
			case err != nil:
				return err
			}
			if b, err = s.Bookings.GetByCodeTx(ctx, tx, code); err != nil {
				return err
			}
			if orphan {
				return s.Bookings.DeleteTx(ctx, tx, code)
			}
			if Departed(flight, s.Clock.Now()) {
				return apperr.ErrFlightDeparted
			}
			if err := s.Bookings.DeleteTx(ctx, tx, code); err != nil {
				return err
			}
			if err := s.Flights.ReleaseTx(ctx, tx, flight.ID); err != nil {
				return err
			}
			_, err = s.Flights.VerifyTx(ctx, tx, flight.ID)
			return err
		})
	}
	if err != nil {
		s.logReject(err, "cancellation rejected", slog.String("confirmation", code), slog.String("user_id", requester))
		return err
	}

	if err := s.Artifacts.Delete(ctx, b.FlightID, code); err != nil {
		s.Log.Error("boarding pass delete failed", slog.String("confirmation", code), slog.Any("err", err))
	}
	s.Log.Info("booking cancelled",
		slog.String("confirmation", code), slog.String("flight_id", b.FlightID), slog.Bool("orphan", orphan))
	if orphan {
		return nil
	}
	if err := s.Relay.BookingCancelled(b, flight, true); err != nil {
		s.Log.Error("cancellation notification failed", slog.String("confirmation", code), slog.Any("err", err))
	}
	return nil
}

// Get returns a booking owned by requester. Bookings of other users look
// the same as missing ones.
func (s *BookingService) Get(ctx context.Context, code, requester string) (BookingView, error) {
	b, err := s.Bookings.GetByCode(ctx, code)
	if err != nil {
		return BookingView{}, err
	}
	if b.UserID != requester {
		return BookingView{}, apperr.ErrBookingNotFound
	}
	return s.view(ctx, b, nil)
}

// ListForUser returns the user's bookings with their flights.
func (s *BookingService) ListForUser(ctx context.Context, userID string) ([]BookingView, error) {
	bs, err := s.Bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]BookingView, 0, len(bs))
	for _, b := range bs {
		v, err := s.view(ctx, b, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ListForFlight returns every booking on a flight. A flight without
// bookings yields an empty slice even if the flight is unknown.
func (s *BookingService) ListForFlight(ctx context.Context, flightID string) ([]BookingView, error) {
	bs, err := s.Bookings.ListByFlightTx(ctx, s.DB, flightID)
	if err != nil || len(bs) == 0 {
		return []BookingView{}, err
	}
	var flight *model.Flight
	if f, err := s.Flights.GetByID(ctx, flightID); err == nil {
		flight = &f
	} else if !errors.Is(err, apperr.ErrFlightNotFound) {
		return nil, err
	}
	out := make([]BookingView, 0, len(bs))
	for _, b := range bs {
		v, err := s.view(ctx, b, flight)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *BookingService) view(ctx context.Context, b model.Booking, flight *model.Flight) (BookingView, error) {
	if flight == nil {
		f, err := s.Flights.GetByID(ctx, b.FlightID)
		switch {
		case errors.Is(err, apperr.ErrFlightNotFound):
			return BookingView{Booking: b, Status: StatusUnknown}, nil
		case err != nil:
			return BookingView{}, err
		}
		flight = &f
	}
	status := StatusUpcoming
	if flight.Departure.Before(s.Clock.Now()) {
		status = StatusDeparted
	}
	return BookingView{Booking: b, Flight: flight, Status: status}, nil
}

func (s *BookingService) logReject(err error, msg string, attrs ...any) {
	if apperr.KindOf(err) == apperr.KindInternal {
		s.Log.Error(msg, append(attrs, slog.Any("err", err))...)
		return
	}
	s.Log.Info(msg, append(attrs, slog.String("reason", apperr.Reason(err)))...)
}
