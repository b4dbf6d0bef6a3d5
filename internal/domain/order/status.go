package order

import "fmt"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

type KdsStatus string

const (
	KdsNotPosted KdsStatus = "NOT_POSTED"
	KdsPending   KdsStatus = "PENDING"
	KdsPosted    KdsStatus = "POSTED"
	KdsFailed    KdsStatus = "FAILED"
)

// Forward-only transition tables. COMPLETED and POSTED are terminal;
// FAILED can be re-driven by a retry. Same-state writes are always legal.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:   {PaymentCompleted, PaymentFailed},
	PaymentFailed:    {PaymentPending, PaymentCompleted},
	PaymentCompleted: {},
}

var kdsTransitions = map[KdsStatus][]KdsStatus{
	KdsNotPosted: {KdsPending, KdsFailed},
	KdsPending:   {KdsPosted, KdsFailed},
	KdsFailed:    {KdsPending, KdsPosted},
	KdsPosted:    {},
}

func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s KdsStatus) CanTransition(next KdsStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range kdsTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SetPaymentStatus advances the payment state machine, rejecting regressions
// such as COMPLETED back to PENDING.
func (o *Order) SetPaymentStatus(next PaymentStatus) error {
	if !o.PaymentStatus.CanTransition(next) {
		return fmt.Errorf("%w: payment %s -> %s", ErrIllegalTransition, o.PaymentStatus, next)
	}
	o.PaymentStatus = next
	return nil
}

// SetKdsStatus advances the KDS state machine.
func (o *Order) SetKdsStatus(next KdsStatus) error {
	if !o.KdsStatus.CanTransition(next) {
		return fmt.Errorf("%w: kds %s -> %s", ErrIllegalTransition, o.KdsStatus, next)
	}
	o.KdsStatus = next
	return nil
}
