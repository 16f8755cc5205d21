package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/southwestptfs/flightdeck/internal/database"
	"github.com/southwestptfs/flightdeck/internal/model"
)

// BannedRepo persists the banned user list maintained by the bot.
type BannedRepo struct {
	DB *database.DB
}

func NewBannedRepo(db *database.DB) *BannedRepo { return &BannedRepo{DB: db} }

// Lookup returns the ban entry for userID, if any.
func (r *BannedRepo) Lookup(ctx context.Context, userID string) (model.BannedUser, bool, error) {
	var reason sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT reason FROM banned_users WHERE user_id = ?`, userID).Scan(&reason)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BannedUser{}, false, nil
	}
	if err != nil {
		return model.BannedUser{}, false, fmt.Errorf("lookup ban %s: %w", userID, err)
	}
	return model.BannedUser{UserID: userID, Reason: reason.String}, true, nil
}

// List returns every ban.
func (r *BannedRepo) List(ctx context.Context) ([]model.BannedUser, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT user_id, reason FROM banned_users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list bans: %w", err)
	}
	defer rows.Close()
	var out []model.BannedUser
	for rows.Next() {
		var (
			b      model.BannedUser
			reason sql.NullString
		)
		if err := rows.Scan(&b.UserID, &reason); err != nil {
			return nil, fmt.Errorf("scan ban: %w", err)
		}
		b.Reason = reason.String
		out = append(out, b)
	}
	return out, rows.Err()
}

// ReplaceAll swaps the whole list for bans in one transaction. Duplicate
// user ids in bans keep the last reason.
func (r *BannedRepo) ReplaceAll(ctx context.Context, bans []model.BannedUser) error {
	dedup := make(map[string]string, len(bans))
	order := make([]string, 0, len(bans))
	for _, b := range bans {
		if _, seen := dedup[b.UserID]; !seen {
			order = append(order, b.UserID)
		}
		dedup[b.UserID] = b.Reason
	}
	return r.DB.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM banned_users`); err != nil {
			return fmt.Errorf("clear bans: %w", err)
		}
		for _, id := range order {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO banned_users (user_id, reason) VALUES (?, ?)`, id, nullString(dedup[id])); err != nil {
				return fmt.Errorf("insert ban %s: %w", id, err)
			}
		}
		return nil
	})
}
