package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TicketCounterRepository hands out per-day ticket numbers from a counter
// row. NextNumber must run inside the caller's transaction: the row lock it
// takes is what keeps the sequence gap-free when the transaction commits the
// owning order, and a rollback returns the number.
type TicketCounterRepository struct {
	pool *pgxpool.Pool
}

func NewTicketCounterRepository(pool *pgxpool.Pool) *TicketCounterRepository {
	return &TicketCounterRepository{pool: pool}
}

func (r *TicketCounterRepository) NextNumber(ctx context.Context, day time.Time) (int, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return 0, fmt.Errorf("ticket counter requires a transaction")
	}

	date := day.UTC().Truncate(24 * time.Hour)

	// Seed the day's row on first use. DO NOTHING keeps a concurrent seeder
	// from failing; both then contend on the row lock below.
	const seed = `
		INSERT INTO ticket_counters (ticket_date, last_number)
		VALUES ($1, 0)
		ON CONFLICT (ticket_date) DO NOTHING`
	if _, err := tx.Exec(ctx, seed, date); err != nil {
		return 0, fmt.Errorf("seed ticket counter: %w", err)
	}

	const lock = `
		SELECT last_number FROM ticket_counters
		WHERE ticket_date = $1
		FOR UPDATE`
	var last int
	if err := tx.QueryRow(ctx, lock, date).Scan(&last); err != nil {
		return 0, fmt.Errorf("lock ticket counter: %w", err)
	}

	next := last + 1

	const bump = `
		UPDATE ticket_counters SET last_number = $2
		WHERE ticket_date = $1`
	if _, err := tx.Exec(ctx, bump, date, next); err != nil {
		return 0, fmt.Errorf("advance ticket counter: %w", err)
	}

	return next, nil
}
