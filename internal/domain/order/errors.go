package order

import "errors"

var (
	ErrNotFound          = errors.New("order not found")
	ErrMissingField      = errors.New("required field is missing")
	ErrInvalidOrderType  = errors.New("invalid order type")
	ErrNoItems           = errors.New("order has no items")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrIllegalTransition = errors.New("illegal status transition")
)
