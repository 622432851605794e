// Package store persists fallback-dataset maintenance to Postgres.
// The database is optional; the service runs fully in-memory without
// it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Database wraps the Postgres connection.
type Database struct {
	conn *sql.DB
}

// NewDatabase opens and pings a connection.
func NewDatabase(dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Database{conn: db}, nil
}

// Close closes the connection.
func (db *Database) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// DB returns the underlying *sql.DB.
func (db *Database) DB() *sql.DB {
	return db.conn
}

// EnsureSchema creates the fallback-entry table when missing.
func (db *Database) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS fallback_entries (
			title         TEXT PRIMARY KEY,
			aliases       TEXT[] NOT NULL DEFAULT '{}',
			main_story    DOUBLE PRECISION,
			main_extra    DOUBLE PRECISION,
			completionist DOUBLE PRECISION,
			all_styles    DOUBLE PRECISION,
			confidence    TEXT NOT NULL DEFAULT 'low',
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// HealthCheck pings the database with a short deadline.
func (db *Database) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return db.conn.PingContext(ctx)
}
