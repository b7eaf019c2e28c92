package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// Schema creates the order and catalog tables used by the Postgres stores.
const Schema = `
CREATE TABLE IF NOT EXISTS meals (
	id                     TEXT PRIMARY KEY,
	name                   JSONB NOT NULL,
	price                  NUMERIC(14,4) NOT NULL,
	category_id            TEXT NOT NULL DEFAULT '',
	default_ingredient_ids TEXT[] NOT NULL DEFAULT '{}',
	is_active              BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS ingredients (
	id        TEXT PRIMARY KEY,
	name      JSONB NOT NULL,
	price     NUMERIC(14,4) NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS orders (
	id                      TEXT PRIMARY KEY,
	order_number            TEXT NOT NULL UNIQUE,
	user_id                 TEXT NOT NULL,
	status                  TEXT NOT NULL,
	order_type              TEXT NOT NULL,
	payment_method          TEXT NOT NULL,
	payment_status          TEXT NOT NULL,
	subtotal                NUMERIC(14,4) NOT NULL,
	tax_amount              NUMERIC(14,4) NOT NULL,
	delivery_fee            NUMERIC(14,4) NOT NULL,
	discount_amount         NUMERIC(14,4) NOT NULL,
	total_amount            NUMERIC(14,4) NOT NULL,
	customer_name           TEXT NOT NULL,
	customer_phone          TEXT NOT NULL,
	customer_email          TEXT NOT NULL DEFAULT '',
	delivery_address        TEXT NOT NULL DEFAULT '',
	delivery_latitude       DOUBLE PRECISION,
	delivery_longitude      DOUBLE PRECISION,
	estimated_delivery_time TIMESTAMPTZ,
	actual_delivery_time    TIMESTAMPTZ,
	special_instructions    TEXT NOT NULL DEFAULT '',
	coupon_code             TEXT NOT NULL DEFAULT '',
	created_at              TIMESTAMPTZ NOT NULL,
	updated_at              TIMESTAMPTZ NOT NULL,
	confirmed_at            TIMESTAMPTZ,
	completed_at            TIMESTAMPTZ,
	version                 INT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status, created_at DESC);

CREATE TABLE IF NOT EXISTS order_items (
	id                       TEXT PRIMARY KEY,
	order_id                 TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	position                 INT NOT NULL,
	meal_id                  TEXT NOT NULL,
	meal_name                TEXT NOT NULL,
	meal_price               NUMERIC(14,4) NOT NULL,
	quantity                 INT NOT NULL CHECK (quantity > 0),
	selected_ingredients     JSONB NOT NULL DEFAULT '[]',
	removed_ingredients      TEXT[] NOT NULL DEFAULT '{}',
	removed_ingredient_names TEXT[] NOT NULL DEFAULT '{}',
	special_instructions     TEXT NOT NULL DEFAULT '',
	subtotal                 NUMERIC(14,4) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items (order_id, position);
`

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string, maxOpen, maxIdle int, maxLifetime time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return db, nil
}

// EnsureSchema applies Schema. Every statement is idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
