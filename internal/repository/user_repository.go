package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/southwestptfs/flightdeck/internal/apperr"
	"github.com/southwestptfs/flightdeck/internal/database"
	"github.com/southwestptfs/flightdeck/internal/model"
)

const userColumns = `id, username, discriminator, roblox_id, avatar, points, api_token_hash,
	is_admin, is_bot, is_staff, is_flight_staff, has_early_bird, flights_attended, created_at`

// ErrInsufficientPoints and ErrAlreadyOwned explain a refused Early-Bird
// purchase.
var (
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrAlreadyOwned       = errors.New("upgrade already owned")
)

// UserRepo persists users keyed by the identity provider's user id.
type UserRepo struct {
	DB *database.DB
}

func NewUserRepo(db *database.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(s rowScanner) (model.User, error) {
	var (
		u                     model.User
		roblox, avatar, token sql.NullString
	)
	err := s.Scan(&u.ID, &u.Username, &u.Discriminator, &roblox, &avatar, &u.Points, &token,
		&u.IsAdmin, &u.IsBot, &u.IsStaff, &u.IsFlightStaff, &u.HasEarlyBird, &u.FlightsAttended, &u.CreatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.RobloxID, u.Avatar, u.APITokenHash = roblox.String, avatar.String, token.String
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// Upsert creates the user on first login and refreshes the profile fields
// (username, discriminator, avatar) on later logins. Points and role flags
// are never touched.
func (r *UserRepo) Upsert(ctx context.Context, u model.User, now time.Time) error {
	return r.DB.InTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET username = ?, discriminator = ?, avatar = ? WHERE id = ?`,
			u.Username, u.Discriminator, nullString(u.Avatar), u.ID)
		if err != nil {
			return fmt.Errorf("update user %s: %w", u.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
		if _, err := r.getTx(ctx, tx, u.ID); err == nil {
			return nil // unchanged profile on MySQL
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, username, discriminator, roblox_id, avatar, points,
				is_admin, is_bot, is_staff, is_flight_staff, has_early_bird, flights_attended, created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			u.ID, u.Username, u.Discriminator, nullString(u.RobloxID), nullString(u.Avatar), u.Points,
			u.IsAdmin, u.IsBot, u.IsStaff, u.IsFlightStaff, u.HasEarlyBird, u.FlightsAttended, now.UTC())
		if err != nil {
			return fmt.Errorf("insert user %s: %w", u.ID, err)
		}
		return nil
	})
}

// GetByID returns the user or apperr.ErrUserNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.getTx(ctx, r.DB, id)
}

func (r *UserRepo) getTx(ctx context.Context, q database.DBTX, id string) (model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, apperr.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// SetAPITokenHash stores the bcrypt hash of the user's API token.
func (r *UserRepo) SetAPITokenHash(ctx context.Context, id, hash string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET api_token_hash = ? WHERE id = ?`, nullString(hash), id)
	if err != nil {
		return fmt.Errorf("set api token for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// AddPoints credits (or with a negative delta debits) points.
func (r *UserRepo) AddPoints(ctx context.Context, id string, delta int) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET points = points + ? WHERE id = ?`, delta, id)
	if err != nil {
		return fmt.Errorf("add points for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrUserNotFound
	}
	return nil
}

// PurchaseEarlyBird debits price points and sets the Early-Bird flag in one
// statement, so a concurrent purchase can never double-spend.
func (r *UserRepo) PurchaseEarlyBird(ctx context.Context, id string, price int) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET points = points - ?, has_early_bird = ?
		WHERE id = ? AND has_early_bird = ? AND points >= ?`, price, true, id, false, price)
	if err != nil {
		return fmt.Errorf("purchase early bird for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.HasEarlyBird {
		return ErrAlreadyOwned
	}
	return ErrInsufficientPoints
}

// SetRoles overwrites the role flags of a user.
func (r *UserRepo) SetRoles(ctx context.Context, id string, admin, bot, staff, flightStaff bool) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET is_admin = ?, is_bot = ?, is_staff = ?, is_flight_staff = ? WHERE id = ?`,
		admin, bot, staff, flightStaff, id)
	if err != nil {
		return fmt.Errorf("set roles for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
