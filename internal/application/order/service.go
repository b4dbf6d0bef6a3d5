package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/catalog"
	domain "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/order"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/repository"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/pkg/logger"
)

// ErrInvalidSKU marks a requested item the catalog does not know. It is a
// client error and is never retried.
var ErrInvalidSKU = errors.New("invalid item sku code")

type Service struct {
	catalog catalog.Provider
	orders  repository.OrderRepository
	tickets repository.TicketCounterRepository
	log     logger.Logger
	now     func() time.Time
}

type CreateOrderLine struct {
	SKUCode  string `json:"item_skuid" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

// CreateOrderCommand carries the kiosk's order request. The submitted totals
// are informational only; the service recomputes them from the catalog.
type CreateOrderCommand struct {
	Channel         string            `json:"channel" binding:"required"`
	OrderType       domain.OrderType  `json:"order_type" binding:"required"`
	Items           []CreateOrderLine `json:"items" binding:"required"`
	TotalIncludeTax float64           `json:"total_amount_include_tax"`
	TotalExcludeTax float64           `json:"total_amount_exclude_tax"`
}

func NewService(
	catalogProvider catalog.Provider,
	orders repository.OrderRepository,
	tickets repository.TicketCounterRepository,
	log logger.Logger,
) *Service {
	return &Service{
		catalog: catalogProvider,
		orders:  orders,
		tickets: tickets,
		log:     log,
		now:     time.Now,
	}
}

// CreateOrder validates the request against the channel catalog, recomputes
// authoritative totals, allocates a kitchen ticket and persists the order.
// The ticket allocation and the order insert commit as one transaction.
func (s *Service) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	snapshot, err := s.catalog.GetCatalog(ctx, cmd.Channel)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	itemIndex := snapshot.ItemIndex()
	taxIndex := snapshot.TaxIndex()

	var totalExc, totalInc float64
	lines := make([]domain.Line, 0, len(cmd.Items))

	for _, requested := range cmd.Items {
		item, ok := itemIndex[requested.SKUCode]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSKU, requested.SKUCode)
		}

		lineTotal := item.Price * float64(requested.Quantity)

		// Exclusive taxes are added on top; inclusive taxes already sit
		// inside the listed price.
		var lineTax float64
		if !item.PriceIncludesTax {
			for _, taxID := range item.TaxTypeIDs {
				if meta, found := taxIndex[taxID]; found {
					lineTax += lineTotal * meta.Percentage / 100
				}
			}
		}

		totalExc += lineTotal
		totalInc += lineTotal + lineTax

		lines = append(lines, domain.Line{
			SKUCode:   requested.SKUCode,
			Name:      item.Name,
			Quantity:  requested.Quantity,
			UnitPrice: item.Price,
		})
	}

	newOrder, err := domain.New(cmd.Channel, cmd.OrderType, lines)
	if err != nil {
		return nil, err
	}

	// Order totals round up to the next whole currency unit; this is ceiling
	// on purpose, unlike the half-up rounding used for per-line tax math.
	newOrder.TotalExcludeTax = int64(math.Ceil(totalExc))
	newOrder.TotalIncludeTax = int64(math.Ceil(totalInc))

	today := s.now().UTC().Truncate(24 * time.Hour)

	err = s.orders.WithTx(ctx, func(txCtx context.Context) error {
		number, err := s.tickets.NextNumber(txCtx, today)
		if err != nil {
			return fmt.Errorf("allocate ticket: %w", err)
		}

		newOrder.TicketDate = today
		newOrder.TicketNumber = number
		newOrder.TicketCode = fmt.Sprintf("KTR-%d", number)

		if err := s.orders.Create(txCtx, newOrder); err != nil {
			return fmt.Errorf("persist order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order created",
		logger.String("order_id", newOrder.OrderID),
		logger.String("ticket_code", newOrder.TicketCode),
		logger.Int64("total_include_tax", newOrder.TotalIncludeTax),
	)
	return newOrder, nil
}

// GetOrder returns the order with the given provider-facing id.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	return o, nil
}
