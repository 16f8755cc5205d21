package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/southwestptfs/flightdeck/internal/apperr"
	"github.com/southwestptfs/flightdeck/internal/boarding"
	"github.com/southwestptfs/flightdeck/internal/clock"
	"github.com/southwestptfs/flightdeck/internal/database"
	"github.com/southwestptfs/flightdeck/internal/model"
	"github.com/southwestptfs/flightdeck/internal/repository"
)

// Check-in windows before departure.
const (
	StandardWindow  = 24 * time.Hour
	EarlyBirdWindow = 36 * time.Hour
)

// CheckinService moves bookings from booked to checked in.
type CheckinService struct {
	DB       *database.DB
	Flights  *repository.FlightRepo
	Bookings *repository.BookingRepo
	Users    *repository.UserRepo
	Passes   *PassService
	Layout   boarding.Layout
	Relay    Relay
	Clock    clock.Clock
	Log      *slog.Logger

	// SkipWindow disables the departure window check. Only for test
	// deployments.
	SkipWindow bool
}

// CheckinResult is the outcome of a successful check-in.
type CheckinResult struct {
	Booking  model.Booking
	Position boarding.Position
	Pass     []byte
}

// CheckIn checks in a booking on behalf of its owner.
func (s *CheckinService) CheckIn(ctx context.Context, code, actor string) (CheckinResult, error) {
	b, err := s.Bookings.GetByCode(ctx, code)
	if err != nil {
		return CheckinResult{}, err
	}
	if b.UserID != actor {
		s.Log.Warn("check-in by non-owner", slog.String("confirmation", code), slog.String("user_id", actor))
		return CheckinResult{}, apperr.ErrNotAuthorized
	}
	return s.checkIn(ctx, b)
}

// StaffCheckIn checks in any booking. The owner's tier still decides the
// window.
func (s *CheckinService) StaffCheckIn(ctx context.Context, code string) (CheckinResult, error) {
	b, err := s.Bookings.GetByCode(ctx, code)
	if err != nil {
		return CheckinResult{}, err
	}
	return s.checkIn(ctx, b)
}

// Window returns the check-in window for the booking owner.
func (s *CheckinService) Window(ctx context.Context, userID string) (time.Duration, error) {
	u, err := s.Users.GetByID(ctx, userID)
	switch {
	case errors.Is(err, apperr.ErrUserNotFound):
		return StandardWindow, nil
	case err != nil:
		return 0, err
	}
	if u.HasEarlyBird {
		return EarlyBirdWindow, nil
	}
	return StandardWindow, nil
}

// checkOpen fails with a too-early error while now is before the window
// opens. The remaining time is rounded up to whole hours.
func checkOpen(departure, now time.Time, window time.Duration) error {
	opens := departure.Add(-window)
	if !now.Before(opens) {
		return nil
	}
	hours := int(math.Ceil(opens.Sub(now).Hours()))
	return apperr.TooEarly(int(window.Hours()), hours)
}

func (s *CheckinService) checkIn(ctx context.Context, b model.Booking) (CheckinResult, error) {
	f, err := s.Flights.GetByID(ctx, b.FlightID)
	if err != nil {
		return CheckinResult{}, err
	}
	now := s.Clock.Now()

	if s.SkipWindow {
		s.Log.Warn("check-in window disabled", slog.String("confirmation", b.Confirmation))
	} else {
		window, err := s.Window(ctx, b.UserID)
		if err != nil {
			return CheckinResult{}, err
		}
		if err := checkOpen(f.Departure, now, window); err != nil {
			s.Log.Info("check-in too early",
				slog.String("confirmation", b.Confirmation), slog.String("flight_id", f.ID),
				slog.Duration("window", window))
			return CheckinResult{}, err
		}
	}

	err = s.DB.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.Flights.LockTx(ctx, tx, f.ID); err != nil {
			return err
		}
		cur, err := s.Bookings.GetByCodeTx(ctx, tx, b.Confirmation)
		if err != nil {
			return err
		}
		if !cur.HasPosition() {
			taken, err := s.Bookings.TakenPositionsTx(ctx, tx, f.ID)
			if err != nil {
				return err
			}
			p := s.Layout.Next(taken)
			if _, err := s.Bookings.AssignPositionTx(ctx, tx, cur.Confirmation, p); err != nil {
				return err
			}
			s.Log.Info("boarding position assigned",
				slog.String("confirmation", cur.Confirmation), slog.String("position", p.String()))
		}
		if err := s.Bookings.MarkCheckedInTx(ctx, tx, cur.Confirmation, now); err != nil {
			return err
		}
		b, err = s.Bookings.GetByCodeTx(ctx, tx, cur.Confirmation)
		return err
	})
	if err != nil {
		return CheckinResult{}, err
	}

	pass, err := s.Passes.render(ctx, b, false)
	if err != nil {
		return CheckinResult{}, err
	}
	if err := s.Relay.CheckedIn(b, f, pass); err != nil {
		s.Log.Error("check-in notification failed", slog.String("confirmation", b.Confirmation), slog.Any("err", err))
	}
	s.Log.Info("checked in", slog.String("confirmation", b.Confirmation), slog.String("flight_id", f.ID))
	return CheckinResult{
		Booking:  b,
		Position: boarding.Position{Group: b.BoardingGroup, Number: b.BoardingPosition},
		Pass:     pass,
	}, nil
}
