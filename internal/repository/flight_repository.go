package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/southwestptfs/flightdeck/internal/apperr"
	"github.com/southwestptfs/flightdeck/internal/database"
	"github.com/southwestptfs/flightdeck/internal/model"
)

const flightColumns = `id, origin, destination, aircraft, departure, seats, booked,
	acft_reg, dept_gate, arr_gate, codeshare_ids, host, discord_event_id, roblox_server_link`

// FlightRepo persists flights and owns the seat ledger: the seats/booked
// counters are only changed through ReserveTx, ReleaseTx and VerifyTx.
type FlightRepo struct {
	DB  *database.DB
	Log *slog.Logger
}

func NewFlightRepo(db *database.DB, log *slog.Logger) *FlightRepo {
	return &FlightRepo{DB: db, Log: log}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlight(s rowScanner) (model.Flight, error) {
	var (
		f                            model.Flight
		codeshare, host, event, link sql.NullString
	)
	err := s.Scan(&f.ID, &f.Origin, &f.Destination, &f.Aircraft, &f.Departure, &f.Seats, &f.Booked,
		&f.AcftReg, &f.DeptGate, &f.ArrGate, &codeshare, &host, &event, &link)
	if err != nil {
		return model.Flight{}, err
	}
	f.Departure = f.Departure.UTC()
	f.CodeshareIDs, f.Host, f.DiscordEventID, f.RobloxServerLink = codeshare.String, host.String, event.String, link.String
	return f, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts f with an empty ledger (booked = 0).
func (r *FlightRepo) Create(ctx context.Context, f model.Flight) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO flights (`+flightColumns+`) VALUES (?,?,?,?,?,?,0,?,?,?,?,?,?,?)`,
		f.ID, f.Origin, f.Destination, f.Aircraft, f.Departure.UTC(), f.Seats,
		f.AcftReg, f.DeptGate, f.ArrGate,
		nullString(f.CodeshareIDs), nullString(f.Host), nullString(f.DiscordEventID), nullString(f.RobloxServerLink))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.ErrFlightExists
		}
		return fmt.Errorf("insert flight %s: %w", f.ID, err)
	}
	return nil
}

// GetByID returns the flight or apperr.ErrFlightNotFound.
func (r *FlightRepo) GetByID(ctx context.Context, id string) (model.Flight, error) {
	return r.get(ctx, r.DB, id, false)
}

// LockTx reads the flight inside tx holding its row lock until the
// transaction ends.
func (r *FlightRepo) LockTx(ctx context.Context, tx *sql.Tx, id string) (model.Flight, error) {
	return r.get(ctx, tx, id, true)
}

func (r *FlightRepo) get(ctx context.Context, q database.DBTX, id string, lock bool) (model.Flight, error) {
	query := `SELECT ` + flightColumns + ` FROM flights WHERE id = ?`
	if lock {
		query += r.DB.Dialect.ForUpdate()
	}
	f, err := scanFlight(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Flight{}, apperr.ErrFlightNotFound
	}
	if err != nil {
		return model.Flight{}, fmt.Errorf("get flight %s: %w", id, err)
	}
	return f, nil
}

// List returns all flights ordered by departure.
func (r *FlightRepo) List(ctx context.Context) ([]model.Flight, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure, id`)
	if err != nil {
		return nil, fmt.Errorf("list flights: %w", err)
	}
	defer rows.Close()
	var out []model.Flight
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpdateTx writes the editable columns of f. The ledger columns are left
// untouched.
func (r *FlightRepo) UpdateTx(ctx context.Context, q database.DBTX, f model.Flight) error {
	res, err := q.ExecContext(ctx,
		`UPDATE flights SET origin = ?, destination = ?, aircraft = ?, departure = ?, seats = ?,
			acft_reg = ?, dept_gate = ?, arr_gate = ?, codeshare_ids = ?, host = ?,
			discord_event_id = ?, roblox_server_link = ?
		WHERE id = ?`,
		f.Origin, f.Destination, f.Aircraft, f.Departure.UTC(), f.Seats,
		f.AcftReg, f.DeptGate, f.ArrGate, nullString(f.CodeshareIDs), nullString(f.Host),
		nullString(f.DiscordEventID), nullString(f.RobloxServerLink), f.ID)
	if err != nil {
		return fmt.Errorf("update flight %s: %w", f.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for an update that changed nothing, so confirm
		// the row is really gone before reporting it.
		if _, err := r.get(ctx, q, f.ID, false); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTx removes the flight row only; bookings are removed by the caller.
func (r *FlightRepo) DeleteTx(ctx context.Context, q database.DBTX, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM flights WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete flight %s: %w", id, err)
	}
	return nil
}

// ReserveTx takes one seat. It fails with apperr.ErrCapacityExceeded when
// booked has reached seats; the check and the increment are one statement.
func (r *FlightRepo) ReserveTx(ctx context.Context, q database.DBTX, id string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE flights SET booked = booked + 1 WHERE id = ? AND booked < seats`, id)
	if err != nil {
		return fmt.Errorf("reserve seat on %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve seat on %s: %w", id, err)
	}
	if n == 0 {
		if _, err := r.get(ctx, q, id, false); err != nil {
			return err
		}
		return apperr.ErrCapacityExceeded
	}
	return nil
}

// ReleaseTx gives one seat back, never going below zero.
func (r *FlightRepo) ReleaseTx(ctx context.Context, q database.DBTX, id string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE flights SET booked = CASE WHEN booked > 0 THEN booked - 1 ELSE 0 END WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("release seat on %s: %w", id, err)
	}
	return nil
}

// VerifyTx checks 0 <= booked <= seats and repairs a violating row by
// setting seats = max(seats, booked, 0) and booked = 0. It reports whether
// a repair happened. A missing flight is not an error.
func (r *FlightRepo) VerifyTx(ctx context.Context, q database.DBTX, id string) (bool, error) {
	var seats, booked int
	err := q.QueryRowContext(ctx, `SELECT seats, booked FROM flights WHERE id = ?`, id).Scan(&seats, &booked)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verify flight %s: %w", id, err)
	}
	if booked >= 0 && seats >= 0 && booked <= seats {
		return false, nil
	}

	repaired := max(seats, booked, 0)
	if _, err := q.ExecContext(ctx, `UPDATE flights SET seats = ?, booked = 0 WHERE id = ?`, repaired, id); err != nil {
		return false, fmt.Errorf("repair flight %s: %w", id, err)
	}
	if r.Log != nil {
		r.Log.Warn("seat ledger repaired",
			slog.String("flight_id", id),
			slog.Int("seats_before", seats), slog.Int("booked_before", booked),
			slog.Int("seats_after", repaired), slog.Int("booked_after", 0))
	}
	return true, nil
}

// Verify is VerifyTx outside a transaction.
func (r *FlightRepo) Verify(ctx context.Context, id string) (bool, error) {
	return r.VerifyTx(ctx, r.DB, id)
}
