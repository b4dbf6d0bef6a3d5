package kds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/catalog"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/money"
	domain "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/order"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/repository"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/pkg/logger"
)

// ErrConflict signals the provider already holds a sale for this order;
// Sync recovers from it via a status lookup.
var ErrConflict = errors.New("sale already exists")

// SourceInfo links the provider sale back to the kiosk order.
type SourceInfo struct {
	Source             string `json:"source"`
	OrderTransactionID string `json:"orderTransactionId"`
	InvoiceNumber      string `json:"invoiceNumber"`
	InvoiceDate        string `json:"invoiceDate"`
}

// Payment is the single payment record attached to the sale.
type Payment struct {
	Mode       string  `json:"mode"`
	Amount     float64 `json:"amount"`
	Reference  string  `json:"reference"`
	PostedDate string  `json:"postedDate"`
}

// Sale is the payload posted to the kitchen display / ERP provider.
type Sale struct {
	BranchCode        string             `json:"branchCode"`
	Channel           string             `json:"channel"`
	Status            string             `json:"status"`
	SourceInfo        SourceInfo         `json:"sourceInfo"`
	Items             []money.Line       `json:"items"`
	ItemTotalAmount   float64            `json:"itemTotalAmount"`
	TaxAmountIncluded float64            `json:"taxAmountIncluded,omitempty"`
	TaxAmountExcluded float64            `json:"taxAmountExcluded,omitempty"`
	BillAmount        float64            `json:"billAmount"`
	RoundOffAmount    float64            `json:"roundOffAmount"`
	BillRoundedAmount float64            `json:"billRoundedAmount"`
	TotalAmount       float64            `json:"totalAmount"`
	Payments          []Payment          `json:"payments"`
	Taxes             []money.TaxSummary `json:"taxes,omitempty"`
}

// Gateway is the sale-side contract of the KDS provider.
type Gateway interface {
	// PostSale submits the sale under an idempotency key and returns the
	// provider invoice number. Duplicate submissions yield ErrConflict.
	PostSale(ctx context.Context, sale Sale, requestID string) (string, error)

	// GetSaleStatus resolves the invoice number recorded for an order
	// transaction id, or "" when the provider knows nothing.
	GetSaleStatus(ctx context.Context, orderTransactionID string) (string, error)
}

type Service struct {
	orders     repository.OrderRepository
	catalog    catalog.Provider
	gateway    Gateway
	branchCode string
	log        logger.Logger
	now        func() time.Time
}

func NewService(
	orders repository.OrderRepository,
	catalogProvider catalog.Provider,
	gateway Gateway,
	branchCode string,
	log logger.Logger,
) *Service {
	return &Service{
		orders:     orders,
		catalog:    catalogProvider,
		gateway:    gateway,
		branchCode: branchCode,
		log:        log,
		now:        time.Now,
	}
}

// Sync posts the order to the KDS provider exactly once. Safe to call any
// number of times from the cash, poll and webhook paths: an order already
// POSTED with an invoice id returns immediately.
func (s *Service) Sync(ctx context.Context, o *domain.Order) error {
	if o.KdsStatus == domain.KdsPosted && o.KdsInvoiceID != "" {
		return nil
	}

	snapshot, err := s.catalog.GetCatalog(ctx, o.Channel)
	if err != nil {
		s.markFailed(ctx, o, fmt.Sprintf("catalog error: %v", err))
		return fmt.Errorf("fetch catalog: %w", err)
	}

	sale, err := s.buildSale(o, snapshot)
	if err != nil {
		s.markFailed(ctx, o, fmt.Sprintf("payload build error: %v", err))
		return fmt.Errorf("build sale payload: %w", err)
	}

	attemptAt := s.now().UTC()
	o.KdsLastAttemptAt = &attemptAt
	if err := o.SetKdsStatus(domain.KdsPending); err != nil {
		return err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return fmt.Errorf("persist kds attempt: %w", err)
	}

	requestID := fmt.Sprintf("kds_%s_%d", o.OrderID, attemptAt.UnixMilli())
	invoiceID, err := s.gateway.PostSale(ctx, sale, requestID)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			// A duplicate post race: somebody already created the sale.
			// Resolve its invoice id instead of failing the order.
			s.log.Warn("kds post conflict, resolving existing sale",
				logger.String("order_id", o.OrderID))
			if resolved, lookupErr := s.gateway.GetSaleStatus(ctx, o.OrderID); lookupErr == nil && resolved != "" {
				return s.markPosted(ctx, o, resolved)
			}
		}
		s.markFailed(ctx, o, err.Error())
		return fmt.Errorf("post sale: %w", err)
	}

	if err := s.markPosted(ctx, o, invoiceID); err != nil {
		return err
	}
	s.log.Info("kds post succeeded",
		logger.String("order_id", o.OrderID),
		logger.String("invoice_id", invoiceID),
	)
	return nil
}

// buildSale assembles the provider payload from the live catalog. Prices and
// tax rules come from the current snapshot rather than the order's frozen
// lines: the catalog is the source of truth for the KDS side.
func (s *Service) buildSale(o *domain.Order, snapshot catalog.Catalog) (Sale, error) {
	taxIndex := snapshot.TaxIndex()

	lines := make([]money.Line, 0, len(o.Items))
	var sumItemTotal, sumTaxInc, sumTaxExc float64

	for _, ordered := range o.Items {
		item := snapshot.FindItem(ordered.SKUCode)
		if item == nil {
			return Sale{}, fmt.Errorf("sku %s not found in catalog", ordered.SKUCode)
		}

		line, taxInc, taxExc := money.BuildLine(*item, ordered.Quantity, taxIndex)
		lines = append(lines, line)
		sumItemTotal += line.ItemTotalAmount
		sumTaxInc += taxInc
		sumTaxExc += taxExc
	}

	mode := string(o.PaymentMethod)
	if mode == "" {
		mode = "Digital"
	}
	reference := o.ProviderTxnID
	if reference == "" {
		reference = o.OrderID
	}

	nowISO := s.now().UTC().Format(time.RFC3339)
	billAmount := money.Round(sumItemTotal + sumTaxExc)

	sale := Sale{
		BranchCode: s.branchCode,
		Channel:    o.Channel,
		Status:     "Closed",
		SourceInfo: SourceInfo{
			Source:             o.Channel,
			OrderTransactionID: o.OrderID,
			InvoiceNumber:      o.TicketCode,
			InvoiceDate:        nowISO,
		},
		Items:             lines,
		ItemTotalAmount:   money.Round(sumItemTotal),
		BillAmount:        billAmount,
		RoundOffAmount:    0,
		BillRoundedAmount: billAmount,
		TotalAmount:       money.Round(float64(o.TotalIncludeTax)),
		Payments: []Payment{
			{
				Mode:       mode,
				Amount:     money.Round(float64(o.TotalIncludeTax)),
				Reference:  reference,
				PostedDate: nowISO,
			},
		},
		Taxes: money.SummarizeTaxes(lines),
	}
	if sumTaxInc != 0 {
		sale.TaxAmountIncluded = money.Round(sumTaxInc)
	}
	if sumTaxExc != 0 {
		sale.TaxAmountExcluded = money.Round(sumTaxExc)
	}
	return sale, nil
}

func (s *Service) markPosted(ctx context.Context, o *domain.Order, invoiceID string) error {
	if err := o.SetKdsStatus(domain.KdsPosted); err != nil {
		return err
	}
	o.KdsInvoiceID = invoiceID
	o.KdsLastError = ""
	if err := s.orders.Update(ctx, o); err != nil {
		return fmt.Errorf("persist kds success: %w", err)
	}
	return nil
}

func (s *Service) markFailed(ctx context.Context, o *domain.Order, reason string) {
	if err := o.SetKdsStatus(domain.KdsFailed); err != nil {
		s.log.Warn("kds failure not recordable", logger.String("order_id", o.OrderID), logger.Error(err))
		return
	}
	o.KdsLastError = reason
	if err := s.orders.Update(ctx, o); err != nil {
		s.log.Error("persist kds failure state failed",
			logger.String("order_id", o.OrderID), logger.Error(err))
	}
}
