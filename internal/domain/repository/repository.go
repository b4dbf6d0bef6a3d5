package repository

import (
	"context"
	"time"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/order"
)

type OrderRepository interface {
	// WithTx runs fn inside one transaction; repository calls made with the
	// context fn receives join that transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	Create(ctx context.Context, o *order.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*order.Order, error)
	Update(ctx context.Context, o *order.Order) error

	// FindCompletedByKdsStatus lists COMPLETED orders whose KDS sync sits in
	// the given state, oldest first.
	FindCompletedByKdsStatus(ctx context.Context, status order.KdsStatus, limit int) ([]*order.Order, error)
}

// TicketCounterRepository allocates per-day kitchen ticket numbers.
type TicketCounterRepository interface {
	// NextNumber returns the next gap-free number for day. It locks the
	// day's counter row, so it must run inside the transaction that also
	// persists the owning order.
	NextNumber(ctx context.Context, day time.Time) (int, error)
}
