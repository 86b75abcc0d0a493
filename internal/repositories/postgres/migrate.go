package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id                   TEXT PRIMARY KEY,
	order_number         TEXT NOT NULL UNIQUE,
	customer_id          TEXT NOT NULL,
	customer_name        TEXT NOT NULL DEFAULT '',
	customer_phone       TEXT NOT NULL DEFAULT '',
	staff_id             TEXT NOT NULL DEFAULT '',
	subtotal             NUMERIC(12,2) NOT NULL,
	tax_rate             NUMERIC(6,4) NOT NULL,
	tax_amount           NUMERIC(12,2) NOT NULL,
	tip_percentage       NUMERIC(6,2) NOT NULL,
	tip_amount           NUMERIC(12,2) NOT NULL,
	total_amount         NUMERIC(12,2) NOT NULL,
	payment_method       TEXT NOT NULL,
	payment_status       TEXT NOT NULL,
	order_status         TEXT NOT NULL,
	transaction_id       TEXT,
	authorization_code   TEXT,
	card_last4           TEXT,
	terminal_id          TEXT,
	payment_completed_at TIMESTAMPTZ,
	refunded_total       NUMERIC(12,2) NOT NULL DEFAULT 0,
	refund_reasons       TEXT[] NOT NULL DEFAULT '{}',
	notes                TEXT NOT NULL DEFAULT '',
	cancel_reason        TEXT,
	cancelled_at         TIMESTAMPTZ,
	version              BIGINT NOT NULL DEFAULT 1,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
	order_id         TEXT NOT NULL REFERENCES orders (id),
	position         INT NOT NULL,
	service_id       TEXT NOT NULL,
	name             TEXT NOT NULL,
	category         TEXT NOT NULL DEFAULT '',
	unit_price       NUMERIC(12,2) NOT NULL,
	quantity         INT NOT NULL,
	staff_id         TEXT NOT NULL DEFAULT '',
	duration_minutes INT NOT NULL DEFAULT 0,
	PRIMARY KEY (order_id, position)
);

CREATE TABLE IF NOT EXISTS counters (
	id    TEXT PRIMARY KEY,
	value BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_orders_payment_status ON orders (payment_status);
CREATE INDEX IF NOT EXISTS idx_orders_order_status ON orders (order_status);
CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders (customer_id);
`

// Migrate creates the settlement tables when they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
