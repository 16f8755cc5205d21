package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/southwestptfs/flightdeck/internal/apperr"
	"github.com/southwestptfs/flightdeck/internal/boarding"
	"github.com/southwestptfs/flightdeck/internal/database"
	"github.com/southwestptfs/flightdeck/internal/model"
)

const bookingColumns = `confirmation, user_id, username, flight_id, booked_at,
	boarding_group, boarding_position, checked_in_at`

// BookingRepo persists bookings. Most methods take a database.DBTX so they
// can join the caller's transaction.
type BookingRepo struct {
	DB *database.DB
}

func NewBookingRepo(db *database.DB) *BookingRepo { return &BookingRepo{DB: db} }

func scanBooking(s rowScanner) (model.Booking, error) {
	var (
		b         model.Booking
		group     sql.NullString
		position  sql.NullInt64
		checkedIn sql.NullTime
	)
	if err := s.Scan(&b.Confirmation, &b.UserID, &b.Username, &b.FlightID, &b.BookedAt,
		&group, &position, &checkedIn); err != nil {
		return model.Booking{}, err
	}
	b.BookedAt = b.BookedAt.UTC()
	if group.Valid && position.Valid {
		b.BoardingGroup = group.String
		b.BoardingPosition = int(position.Int64)
	}
	if checkedIn.Valid {
		t := checkedIn.Time.UTC()
		b.CheckedInAt = &t
	}
	return b, nil
}

func (r *BookingRepo) queryList(ctx context.Context, q database.DBTX, where string, args ...any) ([]model.Booking, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE `+where+` ORDER BY booked_at, confirmation`, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// InsertTx stores a new booking. A collision on the confirmation code or
// on the (user, flight) pair yields ErrDuplicateKey.
func (r *BookingRepo) InsertTx(ctx context.Context, q database.DBTX, b model.Booking) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO bookings (confirmation, user_id, username, flight_id, booked_at) VALUES (?,?,?,?,?)`,
		b.Confirmation, b.UserID, b.Username, b.FlightID, b.BookedAt.UTC())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert booking %s: %w", b.Confirmation, err)
	}
	return nil
}

// GetByCode returns the booking or apperr.ErrBookingNotFound.
func (r *BookingRepo) GetByCode(ctx context.Context, code string) (model.Booking, error) {
	return r.GetByCodeTx(ctx, r.DB, code)
}

func (r *BookingRepo) GetByCodeTx(ctx context.Context, q database.DBTX, code string) (model.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE confirmation = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, apperr.ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("get booking %s: %w", code, err)
	}
	return b, nil
}

// CodeExistsTx reports whether a confirmation code is already issued.
func (r *BookingRepo) CodeExistsTx(ctx context.Context, q database.DBTX, code string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE confirmation = ?`, code).Scan(&n); err != nil {
		return false, fmt.Errorf("check code %s: %w", code, err)
	}
	return n > 0, nil
}

// HasBookingTx reports whether userID already holds a booking on flightID.
func (r *BookingRepo) HasBookingTx(ctx context.Context, q database.DBTX, userID, flightID string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE user_id = ? AND flight_id = ?`, userID, flightID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check duplicate booking: %w", err)
	}
	return n > 0, nil
}

// ListByUser returns a user's bookings, oldest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	return r.queryList(ctx, r.DB, `user_id = ?`, userID)
}

// ListByFlightTx returns every booking on a flight.
func (r *BookingRepo) ListByFlightTx(ctx context.Context, q database.DBTX, flightID string) ([]model.Booking, error) {
	return r.queryList(ctx, q, `flight_id = ?`, flightID)
}

// TakenPositionsTx returns the boarding slots already assigned on a flight.
func (r *BookingRepo) TakenPositionsTx(ctx context.Context, q database.DBTX, flightID string) ([]boarding.Position, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT boarding_group, boarding_position FROM bookings
		WHERE flight_id = ? AND boarding_group IS NOT NULL AND boarding_position IS NOT NULL`, flightID)
	if err != nil {
		return nil, fmt.Errorf("taken positions on %s: %w", flightID, err)
	}
	defer rows.Close()
	var out []boarding.Position
	for rows.Next() {
		var p boarding.Position
		if err := rows.Scan(&p.Group, &p.Number); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AssignPositionTx stores p on the booking unless a position is already
// set. It reports whether the write happened.
func (r *BookingRepo) AssignPositionTx(ctx context.Context, q database.DBTX, code string, p boarding.Position) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE bookings SET boarding_group = ?, boarding_position = ?
		WHERE confirmation = ? AND boarding_position IS NULL`, p.Group, p.Number, code)
	if err != nil {
		return false, fmt.Errorf("assign position to %s: %w", code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign position to %s: %w", code, err)
	}
	return n == 1, nil
}

// MarkCheckedInTx stamps the first check-in time. Later calls keep the
// first stamp.
func (r *BookingRepo) MarkCheckedInTx(ctx context.Context, q database.DBTX, code string, at time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE bookings SET checked_in_at = ? WHERE confirmation = ? AND checked_in_at IS NULL`, at.UTC(), code)
	if err != nil {
		return fmt.Errorf("check in %s: %w", code, err)
	}
	return nil
}

// DeleteTx removes one booking. A code with no row gives
// apperr.ErrBookingNotFound.
func (r *BookingRepo) DeleteTx(ctx context.Context, q database.DBTX, code string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM bookings WHERE confirmation = ?`, code)
	if err != nil {
		return fmt.Errorf("delete booking %s: %w", code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete booking %s: %w", code, err)
	}
	if n == 0 {
		return apperr.ErrBookingNotFound
	}
	return nil
}

// DeleteByFlightTx removes every booking on a flight.
func (r *BookingRepo) DeleteByFlightTx(ctx context.Context, q database.DBTX, flightID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM bookings WHERE flight_id = ?`, flightID); err != nil {
		return fmt.Errorf("delete bookings of %s: %w", flightID, err)
	}
	return nil
}
