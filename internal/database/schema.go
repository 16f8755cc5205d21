package database

import (
	"context"
	"fmt"
)

// Bookings and flights are not tied by a foreign key: an orphaned booking
// (flight already removed) must still be cancellable.

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id               VARCHAR(32)  NOT NULL PRIMARY KEY,
		username         VARCHAR(64)  NOT NULL,
		discriminator    VARCHAR(8)   NOT NULL DEFAULT '0',
		roblox_id        VARCHAR(32)  NULL,
		avatar           VARCHAR(128) NULL,
		points           INT          NOT NULL DEFAULT 0,
		api_token_hash   VARCHAR(100) NULL,
		is_admin         BOOLEAN      NOT NULL DEFAULT FALSE,
		is_bot           BOOLEAN      NOT NULL DEFAULT FALSE,
		is_staff         BOOLEAN      NOT NULL DEFAULT FALSE,
		is_flight_staff  BOOLEAN      NOT NULL DEFAULT FALSE,
		has_early_bird   BOOLEAN      NOT NULL DEFAULT FALSE,
		flights_attended INT          NOT NULL DEFAULT 0,
		created_at       DATETIME     NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS flights (
		id                 VARCHAR(16)  NOT NULL PRIMARY KEY,
		origin             VARCHAR(8)   NOT NULL,
		destination        VARCHAR(8)   NOT NULL,
		aircraft           VARCHAR(64)  NOT NULL,
		departure          DATETIME     NOT NULL,
		seats              INT          NOT NULL,
		booked             INT          NOT NULL DEFAULT 0,
		acft_reg           VARCHAR(16)  NOT NULL DEFAULT '',
		dept_gate          VARCHAR(16)  NOT NULL DEFAULT '',
		arr_gate           VARCHAR(16)  NOT NULL DEFAULT '',
		codeshare_ids      VARCHAR(128) NULL,
		host               VARCHAR(64)  NULL,
		discord_event_id   VARCHAR(32)  NULL,
		roblox_server_link VARCHAR(255) NULL,
		KEY idx_flights_departure (departure)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		confirmation      VARCHAR(16) NOT NULL PRIMARY KEY,
		user_id           VARCHAR(32) NOT NULL,
		username          VARCHAR(64) NOT NULL DEFAULT '',
		flight_id         VARCHAR(16) NOT NULL,
		booked_at         DATETIME    NOT NULL,
		boarding_group    CHAR(1)     NULL,
		boarding_position INT         NULL,
		checked_in_at     DATETIME    NULL,
		UNIQUE KEY uq_bookings_user_flight (user_id, flight_id),
		KEY idx_bookings_flight (flight_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS banned_users (
		user_id VARCHAR(32)  NOT NULL PRIMARY KEY,
		reason  VARCHAR(255) NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id               TEXT     NOT NULL PRIMARY KEY,
		username         TEXT     NOT NULL,
		discriminator    TEXT     NOT NULL DEFAULT '0',
		roblox_id        TEXT     NULL,
		avatar           TEXT     NULL,
		points           INTEGER  NOT NULL DEFAULT 0,
		api_token_hash   TEXT     NULL,
		is_admin         BOOLEAN  NOT NULL DEFAULT 0,
		is_bot           BOOLEAN  NOT NULL DEFAULT 0,
		is_staff         BOOLEAN  NOT NULL DEFAULT 0,
		is_flight_staff  BOOLEAN  NOT NULL DEFAULT 0,
		has_early_bird   BOOLEAN  NOT NULL DEFAULT 0,
		flights_attended INTEGER  NOT NULL DEFAULT 0,
		created_at       DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS flights (
		id                 TEXT     NOT NULL PRIMARY KEY,
		origin             TEXT     NOT NULL,
		destination        TEXT     NOT NULL,
		aircraft           TEXT     NOT NULL,
		departure          DATETIME NOT NULL,
		seats              INTEGER  NOT NULL,
		booked             INTEGER  NOT NULL DEFAULT 0,
		acft_reg           TEXT     NOT NULL DEFAULT '',
		dept_gate          TEXT     NOT NULL DEFAULT '',
		arr_gate           TEXT     NOT NULL DEFAULT '',
		codeshare_ids      TEXT     NULL,
		host               TEXT     NULL,
		discord_event_id   TEXT     NULL,
		roblox_server_link TEXT     NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_flights_departure ON flights (departure)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		confirmation      TEXT     NOT NULL PRIMARY KEY,
		user_id           TEXT     NOT NULL,
		username          TEXT     NOT NULL DEFAULT '',
		flight_id         TEXT     NOT NULL,
		booked_at         DATETIME NOT NULL,
		boarding_group    TEXT     NULL,
		boarding_position INTEGER  NULL,
		checked_in_at     DATETIME NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_bookings_user_flight ON bookings (user_id, flight_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_flight ON bookings (flight_id)`,
	`CREATE TABLE IF NOT EXISTS banned_users (
		user_id TEXT NOT NULL PRIMARY KEY,
		reason  TEXT NULL
	)`,
}

// Migrate creates the tables the service needs. It is idempotent.
func Migrate(ctx context.Context, db *DB) error {
	stmts := mysqlSchema
	if db.Dialect == SQLite {
		stmts = sqliteSchema
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
