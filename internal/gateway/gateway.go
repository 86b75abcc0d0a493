// Package gateway defines the contract for the external system that moves
// funds. The settlement engine treats it as opaque, possibly slow and
// possibly failing; outcomes are classified so callers can tell a terminal
// decline from a retryable fault.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/salonfield/backoffice/internal/domain"
)

var (
	// ErrDeclined signals a terminal decline: the gateway refused the
	// operation and retrying the same request will not succeed.
	ErrDeclined = errors.New("gateway: declined")
	// ErrUnavailable signals a transient gateway fault; the caller may
	// retry the same operation.
	ErrUnavailable = errors.New("gateway: unavailable")
)

// AuthorizeRequest asks the gateway to capture the order total.
type AuthorizeRequest struct {
	OrderID     string
	OrderNumber string
	Amount      decimal.Decimal
	Method      domain.PaymentMethod
}

// Authorization carries the evidence returned by an approved capture.
// CardLast4 is populated only for card payment methods.
type Authorization struct {
	TransactionID     string
	AuthorizationCode string
	CardLast4         string
	TerminalID        string
	AuthorizedAt      time.Time
}

// RefundRequest asks the gateway to return funds from a settled transaction.
type RefundRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	Reason        string
}

// Refund carries the reference for an approved refund.
type Refund struct {
	RefundID   string
	RefundedAt time.Time
}

// Provider is implemented by payment gateway adapters. Failures are reported
// as errors wrapping ErrDeclined or ErrUnavailable; a context deadline is
// treated by callers the same way as ErrUnavailable.
type Provider interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (Authorization, error)
	Refund(ctx context.Context, req RefundRequest) (Refund, error)
}

// IsRetryable reports whether the gateway outcome permits retrying the same
// operation without changing the request.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDeclined) {
		return false
	}
	return true
}
