package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Client wraps the SQL connection pool
type Client struct {
	DB *sql.DB
}

// NewClient opens a Postgres connection pool and verifies connectivity
func NewClient(databaseURL string) (*Client, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{DB: db}, nil
}

// Close closes the pool
func (c *Client) Close() error {
	return c.DB.Close()
}

// Migrate applies the schema. Idempotent; meant for development and tests,
// production deployments run the same statements through their migration
// tooling.
func (c *Client) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         SERIAL PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL UNIQUE,
			role       TEXT NOT NULL,
			team       TEXT NOT NULL DEFAULT '',
			active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS leads (
			id             SERIAL PRIMARY KEY,
			name           TEXT NOT NULL,
			company        TEXT NOT NULL DEFAULT '',
			email          TEXT NOT NULL DEFAULT '',
			phone          TEXT NOT NULL DEFAULT '',
			value          NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (value >= 0),
			source         TEXT NOT NULL DEFAULT '',
			stage          TEXT NOT NULL,
			assigned_to    INTEGER REFERENCES users(id),
			next_follow_up TIMESTAMPTZ,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS activities (
			id         SERIAL PRIMARY KEY,
			lead_id    INTEGER NOT NULL REFERENCES leads(id),
			user_id    INTEGER NOT NULL,
			type       TEXT NOT NULL,
			notes      TEXT NOT NULL DEFAULT '',
			duration   INTEGER NOT NULL DEFAULT 0,
			outcome    TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_stage ON leads (stage)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_assigned_to ON leads (assigned_to)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_follow_up ON leads (next_follow_up) WHERE next_follow_up IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_activities_lead ON activities (lead_id, created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
