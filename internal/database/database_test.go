package database_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/southwestptfs/flightdeck/internal/database"
	"github.com/southwestptfs/flightdeck/internal/database/dbtest"
)

func TestMigrateIsIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	const q = `INSERT INTO banned_users (user_id, reason) VALUES (?, ?)`
	if _, err := db.ExecContext(ctx, q, "42", "spam"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err := db.ExecContext(ctx, q, "42", "again")
	if !database.IsUniqueViolation(err) {
		t.Fatalf("IsUniqueViolation(%v) = false", err)
	}
	if database.IsUniqueViolation(errors.New("other")) {
		t.Fatal("plain error reported as unique violation")
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	boom := errors.New("boom")
	err := db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO banned_users (user_id) VALUES ('7')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx error = %v", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM banned_users`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("rolled back insert is visible: %d rows", n)
	}
}

func TestForUpdate(t *testing.T) {
	if database.MySQL.ForUpdate() != " FOR UPDATE" || database.SQLite.ForUpdate() != "" {
		t.Fatal("unexpected ForUpdate suffix")
	}
}
