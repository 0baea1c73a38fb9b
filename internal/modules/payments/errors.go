package payments

import "errors"

var (
	ErrOrderNotPayable = errors.New("order status does not allow payment")
	ErrOrderExpired    = errors.New("order has expired")
	ErrAttemptInFlight = errors.New("a payment attempt is already being prepared")
	ErrAmountMismatch  = errors.New("confirmed amount does not match order amount")
	ErrMockNotAllowed  = errors.New("mock payment not allowed for this identity")
)
