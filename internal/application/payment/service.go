package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domain "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/order"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/repository"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/pkg/logger"
)

const defaultQRExpirySeconds = 180

// KdsSyncer posts a completed order to the kitchen display system. Sync is
// idempotent; callers on the payment path never propagate its error.
type KdsSyncer interface {
	Sync(ctx context.Context, o *domain.Order) error
}

// ReconcileCommand is the unit of work queued by the webhook endpoint and
// applied by the reconcile worker.
type ReconcileCommand struct {
	OrderID string          `json:"order_id"`
	Code    string          `json:"code"`
	Raw     json.RawMessage `json:"raw"`
}

type Service struct {
	orders  repository.OrderRepository
	qr      QRGateway
	edc     EDCGateway
	kds     KdsSyncer
	cashPIN string
	log     logger.Logger
	now     func() time.Time
}

func NewService(
	orders repository.OrderRepository,
	qr QRGateway,
	edc EDCGateway,
	kds KdsSyncer,
	cashPIN string,
	log logger.Logger,
) *Service {
	return &Service{
		orders:  orders,
		qr:      qr,
		edc:     edc,
		kds:     kds,
		cashPIN: cashPIN,
		log:     log,
		now:     time.Now,
	}
}

func (s *Service) loadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// InitiateQR requests a wallet QR for the order. Re-invocation on a COMPLETED
// order or on a PENDING order that already holds a QR payload is a no-op, so
// the kiosk can safely re-hit the endpoint without duplicate gateway calls.
func (s *Service) InitiateQR(ctx context.Context, orderID string, amountMinor int64, storeID string) (*domain.Order, error) {
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.PaymentStatus == domain.PaymentCompleted {
		return o, nil
	}
	if o.PaymentStatus == domain.PaymentPending && o.QRString != "" {
		s.log.Info("returning existing qr for pending order", logger.String("order_id", orderID))
		return o, nil
	}

	result, err := s.qr.CreateQR(ctx, orderID, amountMinor, storeID)
	if err != nil {
		return nil, fmt.Errorf("create qr: %w", err)
	}

	expiresIn := result.ExpiresInSeconds
	if expiresIn <= 0 {
		expiresIn = defaultQRExpirySeconds
	}
	expiresAt := s.now().UTC().Add(time.Duration(expiresIn) * time.Second)

	o.StoreID = storeID
	o.PaymentMethod = domain.MethodQR
	o.ProviderCode = result.Code
	o.ProviderTxnID = orderID
	o.ProviderResp = result.Raw
	o.QRString = result.QRString
	o.QRExpiresAt = &expiresAt

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("persist qr init: %w", err)
	}
	return o, nil
}

// InitiateEDC pushes the amount to the card terminal. Same idempotency guard
// pattern as the QR flow: COMPLETED and already-initiated PENDING orders
// short-circuit.
func (s *Service) InitiateEDC(ctx context.Context, orderID string, amountMinor int64, storeID string) (*domain.Order, error) {
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.PaymentStatus == domain.PaymentCompleted {
		return o, nil
	}
	if o.PaymentStatus == domain.PaymentPending && len(o.ProviderResp) > 0 {
		s.log.Info("returning existing edc request for pending order", logger.String("order_id", orderID))
		return o, nil
	}

	result, err := s.edc.CreateCharge(ctx, orderID, amountMinor, storeID)
	if err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}

	o.StoreID = storeID
	o.PaymentMethod = domain.MethodCard
	o.ProviderTxnID = orderID
	o.ProviderRefID = result.ReferenceID
	o.ProviderResp = result.Raw

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("persist edc init: %w", err)
	}
	return o, nil
}

// InitiateCash confirms a manual cash payment. The PIN gate rejects before
// any state is touched; on success the order completes immediately and the
// KDS sync runs as part of this call.
func (s *Service) InitiateCash(ctx context.Context, orderID string, storeID, pin string) (*domain.Order, error) {
	if pin != s.cashPIN {
		return nil, ErrInvalidPIN
	}

	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.PaymentStatus == domain.PaymentCompleted {
		return o, nil
	}

	if err := o.SetPaymentStatus(domain.PaymentCompleted); err != nil {
		return nil, err
	}
	o.StoreID = storeID
	o.PaymentMethod = domain.MethodCash
	o.ProviderTxnID = "CASH-" + orderID
	o.ProviderCode = "SUCCESS"
	o.ProviderResp = json.RawMessage(`{"message":"Cash payment recorded"}`)

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("persist cash payment: %w", err)
	}

	if err := s.kds.Sync(ctx, o); err != nil {
		// Payment already succeeded; KDS failure stays on the order for a
		// later status check to retry.
		s.log.Warn("kds sync after cash payment failed",
			logger.String("order_id", orderID), logger.Error(err))
	}
	return o, nil
}

// CheckStatus reconciles the order against its payment provider. Poll
// failures are swallowed and leave the order untouched; the kiosk polls on a
// timer. A COMPLETED order still re-attempts KDS sync, covering the case
// where payment succeeded but a prior sync didn't.
func (s *Service) CheckStatus(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.PaymentStatus == domain.PaymentCompleted {
		if err := s.kds.Sync(ctx, o); err != nil {
			s.log.Warn("kds re-sync failed", logger.String("order_id", orderID), logger.Error(err))
		}
		return o, nil
	}

	if o.PaymentMethod == domain.MethodCard {
		return s.checkEDCStatus(ctx, o), nil
	}
	return s.checkQRStatus(ctx, o), nil
}

func (s *Service) checkEDCStatus(ctx context.Context, o *domain.Order) *domain.Order {
	result, err := s.edc.GetChargeStatus(ctx, o.ProviderRefID)
	if err != nil {
		s.log.Error("edc status poll failed", logger.String("order_id", o.OrderID), logger.Error(err))
		return o
	}

	next := mapEDCCode(result.ResponseCode, o.PaymentStatus)
	s.applyProviderResult(ctx, o, next, result.ResponseCode, result.Raw)
	return o
}

func (s *Service) checkQRStatus(ctx context.Context, o *domain.Order) *domain.Order {
	result, err := s.qr.GetStatus(ctx, o.OrderID)
	if err != nil {
		s.log.Error("qr status poll failed", logger.String("order_id", o.OrderID), logger.Error(err))
		return o
	}

	next := mapQRCode(result.Code)
	s.applyProviderResult(ctx, o, next, result.Code, result.Raw)
	return o
}

// applyProviderResult persists a poll outcome when it changes the order and
// triggers KDS sync on a transition into COMPLETED. Never raises: the poll
// contract is best-effort.
func (s *Service) applyProviderResult(ctx context.Context, o *domain.Order, next domain.PaymentStatus, code string, raw json.RawMessage) {
	changed := next != o.PaymentStatus || code != o.ProviderCode

	if changed {
		if err := o.SetPaymentStatus(next); err != nil {
			s.log.Warn("provider result rejected by state machine",
				logger.String("order_id", o.OrderID),
				logger.String("code", code),
				logger.Error(err))
			return
		}
		o.ProviderCode = code
		o.ProviderResp = raw
		if err := s.orders.Update(ctx, o); err != nil {
			s.log.Error("persist status poll failed", logger.String("order_id", o.OrderID), logger.Error(err))
			return
		}
	}

	if o.PaymentStatus == domain.PaymentCompleted {
		if err := s.kds.Sync(ctx, o); err != nil {
			s.log.Warn("kds sync after completion failed",
				logger.String("order_id", o.OrderID), logger.Error(err))
		}
	}
}

// HandleWebhook applies a provider push notification. A missing order is
// logged and dropped; the provider cannot meaningfully receive an error at
// this point.
func (s *Service) HandleWebhook(ctx context.Context, cmd ReconcileCommand) error {
	o, err := s.orders.FindByOrderID(ctx, cmd.OrderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if o == nil {
		s.log.Error("order not found during webhook processing", logger.String("order_id", cmd.OrderID))
		return nil
	}

	next := mapQRCode(cmd.Code)
	if next != o.PaymentStatus {
		if err := o.SetPaymentStatus(next); err != nil {
			s.log.Warn("webhook rejected by state machine",
				logger.String("order_id", cmd.OrderID),
				logger.String("code", cmd.Code),
				logger.Error(err))
			return nil
		}
	}
	o.ProviderCode = cmd.Code
	o.ProviderResp = cmd.Raw

	if err := s.orders.Update(ctx, o); err != nil {
		return fmt.Errorf("persist webhook result: %w", err)
	}

	if o.PaymentStatus == domain.PaymentCompleted {
		if err := s.kds.Sync(ctx, o); err != nil {
			s.log.Warn("kds sync after webhook failed",
				logger.String("order_id", cmd.OrderID), logger.Error(err))
		}
	}
	return nil
}

// mapQRCode translates wallet provider codes; used by both the QR poll and
// the webhook so the two sources converge.
func mapQRCode(code string) domain.PaymentStatus {
	switch code {
	case "PAYMENT_SUCCESS":
		return domain.PaymentCompleted
	case "PAYMENT_ERROR", "PAYMENT_DECLINED", "PAYMENT_CANCELLED", "TRANSACTION_NOT_FOUND":
		return domain.PaymentFailed
	default:
		return domain.PaymentPending
	}
}

// mapEDCCode translates terminal response codes. An empty code means the
// terminal said nothing; the order keeps its current status.
func mapEDCCode(code string, current domain.PaymentStatus) domain.PaymentStatus {
	switch code {
	case "0":
		return domain.PaymentCompleted
	case "1001", "1002":
		return domain.PaymentPending
	case "":
		return current
	default:
		return domain.PaymentFailed
	}
}
