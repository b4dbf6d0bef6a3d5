package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the schema if it does not exist. Idempotent; runs at
// startup before the server accepts traffic.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS orders (
			order_id            TEXT PRIMARY KEY,
			channel             TEXT NOT NULL,
			order_type          TEXT NOT NULL,
			items               JSONB NOT NULL,
			total_exclude_tax   BIGINT NOT NULL,
			total_include_tax   BIGINT NOT NULL,
			ticket_date         DATE NOT NULL,
			ticket_number       INT NOT NULL,
			ticket_code         TEXT NOT NULL,
			payment_method      TEXT NOT NULL DEFAULT '',
			payment_status      TEXT NOT NULL,
			store_id            TEXT NOT NULL DEFAULT '',
			provider_code       TEXT NOT NULL DEFAULT '',
			provider_txn_id     TEXT NOT NULL DEFAULT '',
			provider_ref_id     TEXT NOT NULL DEFAULT '',
			provider_resp       JSONB,
			qr_string           TEXT NOT NULL DEFAULT '',
			qr_expires_at       TIMESTAMPTZ,
			kds_status          TEXT NOT NULL,
			kds_invoice_id      TEXT NOT NULL DEFAULT '',
			kds_last_attempt_at TIMESTAMPTZ,
			kds_last_error      TEXT NOT NULL DEFAULT '',
			created_at          TIMESTAMPTZ NOT NULL,
			updated_at          TIMESTAMPTZ NOT NULL,
			UNIQUE (ticket_date, ticket_number)
		);

		CREATE TABLE IF NOT EXISTS ticket_counters (
			ticket_date DATE PRIMARY KEY,
			last_number INT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_orders_kds_status
			ON orders (payment_status, kds_status, created_at);
	`
	_, err := pool.Exec(ctx, schema)
	return err
}
