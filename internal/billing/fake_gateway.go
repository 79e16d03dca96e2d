package billing

import (
	"context"
	"fmt"
	"sync"
)

const (
	// TestCardNumber backs the token returned by ValidTestToken.
	TestCardNumber = "4242424242424242"
	// TestToken is always accepted by a FakeGateway.
	TestToken = "fake-tok_visa"
	// InvalidToken is never accepted by a FakeGateway.
	InvalidToken = "invalid-payment-token"
)

// FakeGateway is an in-memory Gateway.  Only tokens it issued succeed.
type FakeGateway struct {
	mu                sync.Mutex
	charges           []Charge
	tokens            map[string]string // token -> card number
	beforeFirstCharge func(*FakeGateway)
}

// NewFakeGateway returns a gateway that accepts TestToken.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{tokens: map[string]string{TestToken: TestCardNumber}}
}

// ValidTestToken returns TestToken.
func (g *FakeGateway) ValidTestToken() string { return TestToken }

// TokenForCard issues a new token charging the given card number.
func (g *FakeGateway) TokenForCard(cardNumber string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	token := fmt.Sprintf("fake-tok_%d", len(g.tokens)+1)
	g.tokens[token] = cardNumber
	return token
}

// BeforeFirstCharge registers hook to run once, just before the next
// charge is attempted.  The hook may itself call Charge.
func (g *FakeGateway) BeforeFirstCharge(hook func(*FakeGateway)) {
	g.mu.Lock()
	g.beforeFirstCharge = hook
	g.mu.Unlock()
}

// Charge records a charge if token was issued by this gateway.
func (g *FakeGateway) Charge(_ context.Context, amountCents int64, token string) (Charge, error) {
	g.mu.Lock()
	hook := g.beforeFirstCharge
	g.beforeFirstCharge = nil
	g.mu.Unlock()
	if hook != nil {
		hook(g)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	card, ok := g.tokens[token]
	if !ok {
		return Charge{}, fmt.Errorf("%w: invalid payment token", ErrPaymentFailed)
	}
	ch := Charge{
		AmountCents:  amountCents,
		CardLastFour: lastFour(card),
		Reference:    fmt.Sprintf("fake_ch_%d", len(g.charges)+1),
	}
	g.charges = append(g.charges, ch)
	return ch, nil
}

// lastFour returns the last four characters of card, or all of a shorter one.
func lastFour(card string) string {
	if len(card) <= 4 {
		return card
	}
	return card[len(card)-4:]
}

// TotalCharges sums every successful charge.
func (g *FakeGateway) TotalCharges() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	var total int64
	for _, ch := range g.charges {
		total += ch.AmountCents
	}
	return total
}

// Charges returns a copy of every successful charge, oldest first.
func (g *FakeGateway) Charges() []Charge {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Charge(nil), g.charges...)
}

// NewChargesDuring runs fn and returns the charges it made.
func (g *FakeGateway) NewChargesDuring(_ context.Context, fn func()) ([]Charge, error) {
	g.mu.Lock()
	from := len(g.charges)
	g.mu.Unlock()

	fn()

	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Charge(nil), g.charges[from:]...), nil
}
