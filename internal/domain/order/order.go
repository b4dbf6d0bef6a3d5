package order

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OrderType string

const (
	TypeDineIn   OrderType = "DINEIN"
	TypeTakeaway OrderType = "TAKEAWAY"
)

type PaymentMethod string

const (
	MethodQR     PaymentMethod = "QR"
	MethodCard   PaymentMethod = "CARD"
	MethodCash   PaymentMethod = "CASH"
	MethodManual PaymentMethod = "MANUAL"
)

// Line is one ordered item, frozen at order creation.
type Line struct {
	SKUCode   string  `json:"sku_code"`
	Name      string  `json:"item_name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Order is the aggregate driven through the payment and KDS state machines.
// Totals are whole currency units (rounded up at creation); (TicketDate,
// TicketNumber) and OrderID are unique.
type Order struct {
	OrderID string
	Channel string
	Type    OrderType
	Items   []Line

	TotalExcludeTax int64
	TotalIncludeTax int64

	TicketDate   time.Time
	TicketNumber int
	TicketCode   string

	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus

	StoreID       string
	ProviderCode  string
	ProviderTxnID string
	ProviderRefID string
	ProviderResp  json.RawMessage

	QRString    string
	QRExpiresAt *time.Time

	KdsStatus        KdsStatus
	KdsInvoiceID     string
	KdsLastAttemptAt *time.Time
	KdsLastError     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder validates the request fields and returns a PENDING / NOT_POSTED
// order. Ticket fields and totals are filled in by the order service.
func New(channel string, orderType OrderType, items []Line) (*Order, error) {
	if channel == "" {
		return nil, ErrMissingField
	}
	if orderType != TypeDineIn && orderType != TypeTakeaway {
		return nil, ErrInvalidOrderType
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	for _, item := range items {
		if item.SKUCode == "" {
			return nil, ErrMissingField
		}
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	return &Order{
		OrderID:       NewOrderID(),
		Channel:       channel,
		Type:          orderType,
		Items:         items,
		PaymentStatus: PaymentPending,
		KdsStatus:     KdsNotPosted,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// NewOrderID builds a provider-facing id of the form KTR-<8 hex><2 hex>
// from a random UUID. Stable for the order's lifetime.
func NewOrderID() string {
	u := strings.ToUpper(uuid.NewString())
	return "KTR-" + u[0:8] + u[10:12]
}
