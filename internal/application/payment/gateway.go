package payment

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrGateway wraps provider transport and non-2xx failures; initiation calls
// surface it, poll paths swallow it.
var ErrGateway = errors.New("payment gateway error")

// ErrInvalidPIN rejects a cash confirmation with the wrong PIN.
var ErrInvalidPIN = errors.New("invalid pin for cash payment")

// QRCreateResult is the wallet gateway's answer to a QR initiation.
type QRCreateResult struct {
	Code             string
	QRString         string
	ProviderTxnID    string
	ExpiresInSeconds int
	Raw              json.RawMessage
}

// QRStatusResult carries the wallet's status code for an order.
type QRStatusResult struct {
	Code string
	Raw  json.RawMessage
}

// QRGateway is the dynamic-QR wallet flow contract.
type QRGateway interface {
	CreateQR(ctx context.Context, orderID string, amountMinor int64, storeID string) (*QRCreateResult, error)
	GetStatus(ctx context.Context, orderID string) (*QRStatusResult, error)
}

// ChargeResult is the card terminal's answer to a pushed transaction.
type ChargeResult struct {
	ReferenceID string
	Raw         json.RawMessage
}

// ChargeStatusResult carries the terminal's response code for a reference id.
type ChargeStatusResult struct {
	ResponseCode string
	Raw          json.RawMessage
}

// EDCGateway is the card terminal flow contract.
type EDCGateway interface {
	CreateCharge(ctx context.Context, orderID string, amountMinor int64, storeID string) (*ChargeResult, error)
	GetChargeStatus(ctx context.Context, referenceID string) (*ChargeStatusResult, error)
}
