// Package billing charges customers through a payment gateway.  Production
// uses Stripe; tests and local development use FakeGateway.
package billing

import (
	"context"
	"errors"
)

// ErrPaymentFailed is wrapped by every gateway when a charge is declined
// or the payment token is unusable.  Other errors mean the gateway itself
// could not be reached.
var ErrPaymentFailed = errors.New("payment failed")

// Charge is a successful payment.
type Charge struct {
	AmountCents  int64
	CardLastFour string
	Reference    string // gateway charge or payment intent ID
}

// Gateway charges a tokenised payment method.
type Gateway interface {
	Charge(ctx context.Context, amountCents int64, token string) (Charge, error)
}

// ContractGateway is a Gateway that can be exercised by the shared
// gateway contract tests.
type ContractGateway interface {
	Gateway
	// ValidTestToken returns a token the gateway will accept.
	ValidTestToken() string
	// NewChargesDuring runs fn and returns the charges it made, oldest first.
	NewChargesDuring(ctx context.Context, fn func()) ([]Charge, error)
}
