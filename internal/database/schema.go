package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// One statement per entry: the MySQL driver rejects multi-statement Exec
// unless multiStatements is enabled.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id CHAR(36) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		date_time DATETIME NOT NULL,
		location VARCHAR(255) NOT NULL DEFAULT '',
		INDEX idx_events_date_time (date_time)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS ticket_categories (
		event_id CHAR(36) NOT NULL,
		position INT NOT NULL,
		category_name VARCHAR(255) NOT NULL,
		price DECIMAL(12, 2) NOT NULL,
		available INT NOT NULL,
		PRIMARY KEY (event_id, category_name),
		CONSTRAINT fk_categories_event FOREIGN KEY (event_id) REFERENCES events (id) ON DELETE CASCADE,
		CONSTRAINT chk_available CHECK (available >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id CHAR(36) NOT NULL PRIMARY KEY,
		event_id CHAR(36) NOT NULL,
		category_name VARCHAR(255) NOT NULL,
		quantity INT NOT NULL,
		reserved_at DATETIME(6) NOT NULL,
		INDEX idx_reservations_event (event_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS users (
		id CHAR(36) NOT NULL PRIMARY KEY,
		username VARCHAR(64) NOT NULL,
		UNIQUE KEY uq_users_username (username)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	// reservation_id is a weak reference: cancelled ids stay in the history.
	`CREATE TABLE IF NOT EXISTS user_reservations (
		user_id CHAR(36) NOT NULL,
		position INT NOT NULL,
		reservation_id CHAR(36) NOT NULL,
		PRIMARY KEY (user_id, position),
		CONSTRAINT fk_history_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		date_time TIMESTAMP NOT NULL,
		location VARCHAR(255) NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_date_time ON events (date_time)`,
	`CREATE TABLE IF NOT EXISTS ticket_categories (
		event_id UUID NOT NULL REFERENCES events (id) ON DELETE CASCADE,
		position INT NOT NULL,
		category_name VARCHAR(255) NOT NULL,
		price NUMERIC(12, 2) NOT NULL,
		available INT NOT NULL CHECK (available >= 0),
		PRIMARY KEY (event_id, category_name)
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id UUID PRIMARY KEY,
		event_id UUID NOT NULL,
		category_name VARCHAR(255) NOT NULL,
		quantity INT NOT NULL,
		reserved_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username VARCHAR(64) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS user_reservations (
		user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		position INT NOT NULL,
		reservation_id UUID NOT NULL,
		PRIMARY KEY (user_id, position)
	)`,
}

// Migrate creates any missing tables for the connection's dialect.  It is
// safe to run on every start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	var stmts []string
	switch db.DriverName() {
	case "mysql":
		stmts = mysqlSchema
	case "postgres":
		stmts = postgresSchema
	default:
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
