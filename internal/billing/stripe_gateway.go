package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/iliyamo/concert-ticketing/internal/logger"
	"github.com/iliyamo/concert-ticketing/internal/metrics"
)

// ErrGatewayNotConfigured is returned when no Stripe secret key is set.
var ErrGatewayNotConfigured = errors.New("stripe secret key not configured")

// StripeTestPaymentMethod is Stripe's always-succeeding test card.
const StripeTestPaymentMethod = "pm_card_visa"

// StripeGateway charges through Stripe PaymentIntents confirmed
// server-side; the customer's token is used as the payment method.
type StripeGateway struct {
	client   *client.API
	currency string
	log      *logger.Logger
}

// NewStripeGateway builds a gateway for the given secret key.
func NewStripeGateway(secretKey, currency string, log *logger.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, ErrGatewayNotConfigured
	}
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeGateway{client: client.New(secretKey, nil), currency: currency, log: log}, nil
}

// ValidTestToken returns Stripe's test Visa payment method.
func (g *StripeGateway) ValidTestToken() string { return StripeTestPaymentMethod }

// Charge creates and confirms a payment intent for amountCents.
func (g *StripeGateway) Charge(ctx context.Context, amountCents int64, token string) (Charge, error) {
	start := time.Now()
	ch, err := g.charge(ctx, amountCents, token)
	result := "success"
	if err != nil {
		result = "failed"
	}
	metrics.ChargeDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	return ch, err
}

func (g *StripeGateway) charge(ctx context.Context, amountCents int64, token string) (Charge, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountCents),
		Currency:           stripe.String(g.currency),
		PaymentMethod:      stripe.String(token),
		Confirm:            stripe.Bool(true),
		PaymentMethodTypes: []*string{stripe.String("card")},
	}
	params.Context = ctx
	params.AddExpand("payment_method")

	pi, err := g.client.PaymentIntents.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && (se.Type == stripe.ErrorTypeCard || se.Type == stripe.ErrorTypeInvalidRequest) {
			g.log.LogPayment("DECLINED", "stripe", se.Msg)
			return Charge{}, fmt.Errorf("%w: %s", ErrPaymentFailed, se.Msg)
		}
		g.log.Error("STRIPE", fmt.Sprintf("create payment intent: %v", err))
		return Charge{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		g.log.LogPayment("DECLINED", pi.ID, fmt.Sprintf("status %s", pi.Status))
		return Charge{}, fmt.Errorf("%w: payment intent %s is %s", ErrPaymentFailed, pi.ID, pi.Status)
	}

	ch := Charge{AmountCents: pi.Amount, Reference: pi.ID}
	if pi.PaymentMethod != nil && pi.PaymentMethod.Card != nil {
		ch.CardLastFour = pi.PaymentMethod.Card.Last4
	}
	g.log.LogPayment("CHARGED", pi.ID, fmt.Sprintf("%d %s", pi.Amount, g.currency))
	return ch, nil
}

// NewChargesDuring lists the Stripe charges created while fn ran.
func (g *StripeGateway) NewChargesDuring(ctx context.Context, fn func()) ([]Charge, error) {
	last, err := g.lastChargeID(ctx)
	if err != nil {
		return nil, err
	}

	fn()

	params := &stripe.ChargeListParams{}
	params.Context = ctx
	if last != "" {
		params.EndingBefore = stripe.String(last)
	}
	var newest []Charge
	it := g.client.Charges.List(params)
	for it.Next() {
		c := it.Charge()
		ch := Charge{AmountCents: c.Amount, Reference: c.ID}
		if c.PaymentMethodDetails != nil && c.PaymentMethodDetails.Card != nil {
			ch.CardLastFour = c.PaymentMethodDetails.Card.Last4
		}
		newest = append(newest, ch)
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("stripe: list charges: %w", err)
	}

	// Stripe lists newest first.
	out := make([]Charge, len(newest))
	for i, ch := range newest {
		out[len(newest)-1-i] = ch
	}
	return out, nil
}

func (g *StripeGateway) lastChargeID(ctx context.Context) (string, error) {
	params := &stripe.ChargeListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.Single = true
	it := g.client.Charges.List(params)
	if it.Next() {
		return it.Charge().ID, nil
	}
	if err := it.Err(); err != nil {
		return "", fmt.Errorf("stripe: list charges: %w", err)
	}
	return "", nil
}
