package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

type stripeIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

// StripeConfig configures the Stripe-backed gateway adapter.
type StripeConfig struct {
	APIKey   string
	Currency string
	Clock    func() time.Time

	intents stripeIntentAPI
	refunds stripeRefundAPI
}

// StripeGateway implements Provider against Stripe PaymentIntents and
// Refunds. The POS terminal identifier the simulator produces has no Stripe
// counterpart and stays empty; the charge id stands in for the issuer
// authorization code.
type StripeGateway struct {
	intents  stripeIntentAPI
	refunds  stripeRefundAPI
	currency string
	clock    func() time.Time
}

// NewStripeGateway constructs a Stripe gateway adapter.
func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	intents, refunds := cfg.intents, cfg.refunds
	if intents == nil || refunds == nil {
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		sc := client.New(apiKey, nil)
		intents = sc.PaymentIntents
		refunds = sc.Refunds
	}

	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "cad"
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &StripeGateway{
		intents:  intents,
		refunds:  refunds,
		currency: currency,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

// Authorize implements Provider by creating and confirming a PaymentIntent
// for the order total.
func (g *StripeGateway) Authorize(ctx context.Context, req AuthorizeRequest) (Authorization, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(req.Amount)),
		Currency: stripe.String(g.currency),
		Confirm:  stripe.Bool(true),
	}
	params.Context = ctx
	params.Metadata = map[string]string{
		"order_id":       req.OrderID,
		"order_number":   req.OrderNumber,
		"payment_method": string(req.Method),
	}

	intent, err := g.intents.New(params)
	if err != nil {
		return Authorization{}, classifyStripeError("authorize", err)
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return Authorization{}, fmt.Errorf("%w: payment intent %s status %s", ErrDeclined, intent.ID, intent.Status)
	}

	auth := Authorization{
		TransactionID: intent.ID,
		AuthorizedAt:  g.clock(),
	}
	if charge := intent.LatestCharge; charge != nil {
		auth.AuthorizationCode = charge.ID
		if req.Method.IsCard() && charge.PaymentMethodDetails != nil && charge.PaymentMethodDetails.Card != nil {
			auth.CardLast4 = charge.PaymentMethodDetails.Card.Last4
		}
	}
	return auth, nil
}

// Refund implements Provider by issuing a partial or full refund against the
// original PaymentIntent.
func (g *StripeGateway) Refund(ctx context.Context, req RefundRequest) (Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.TransactionID),
		Amount:        stripe.Int64(minorUnits(req.Amount)),
	}
	params.Context = ctx
	if reason := mapStripeRefundReason(req.Reason); reason != "" {
		params.Reason = stripe.String(reason)
	}

	refund, err := g.refunds.New(params)
	if err != nil {
		return Refund{}, classifyStripeError("refund", err)
	}
	if refund.Status == stripe.RefundStatusFailed || refund.Status == stripe.RefundStatusCanceled {
		return Refund{}, fmt.Errorf("%w: refund %s status %s", ErrDeclined, refund.ID, refund.Status)
	}

	return Refund{
		RefundID:   refund.ID,
		RefundedAt: g.clock(),
	}, nil
}

func classifyStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Type {
		case stripe.ErrorTypeCard:
			return fmt.Errorf("%w: stripe %s: %s", ErrDeclined, op, stripeErr.Code)
		case stripe.ErrorTypeInvalidRequest:
			if stripeErr.Code == stripe.ErrorCodeCardDeclined || stripeErr.Code == stripe.ErrorCodeChargeAlreadyRefunded {
				return fmt.Errorf("%w: stripe %s: %s", ErrDeclined, op, stripeErr.Code)
			}
		}
	}
	return fmt.Errorf("%w: stripe %s: %v", ErrUnavailable, op, err)
}

func mapStripeRefundReason(reason string) string {
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case string(stripe.RefundReasonDuplicate):
		return string(stripe.RefundReasonDuplicate)
	case string(stripe.RefundReasonFraudulent):
		return string(stripe.RefundReasonFraudulent)
	case string(stripe.RefundReasonRequestedByCustomer):
		return string(stripe.RefundReasonRequestedByCustomer)
	default:
		return ""
	}
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
