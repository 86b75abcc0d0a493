package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/salonfield/backoffice/internal/domain"
	"github.com/salonfield/backoffice/internal/repositories"
)

// CreateOrderCommand carries the inputs for creating an order from a priced
// draft. The draft is re-priced during creation, so a tampered snapshot can
// never be persisted.
type CreateOrderCommand struct {
	Draft         PricedDraft
	Customer      domain.CustomerRef
	StaffID       string
	PaymentMethod domain.PaymentMethod
	Notes         string
}

// TransitionStatusCommand advances the fulfillment axis of an order.
type TransitionStatusCommand struct {
	OrderID string
	Target  domain.OrderStatus
}

// CancelOrderCommand cancels an order that has not completed. Paid orders
// must be fully refunded first.
type CancelOrderCommand struct {
	OrderID string
	Reason  string
}

// OrderService owns the order aggregate: creation from a priced draft,
// lookup, listing and fulfillment-axis transitions.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
	Get(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error)
	TransitionStatus(ctx context.Context, cmd TransitionStatusCommand) (domain.Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error)
}

// SubmitPaymentCommand drives an order from pending to paid (or failed).
type SubmitPaymentCommand struct {
	OrderID string
	Method  domain.PaymentMethod
}

// PaymentOutcome reports a successful payment.
type PaymentOutcome struct {
	Order         domain.Order
	TransactionID string
}

// PaymentService owns the payment state-transition rules.
type PaymentService interface {
	SubmitPayment(ctx context.Context, cmd SubmitPaymentCommand) (PaymentOutcome, error)
}

// SubmitRefundCommand applies a partial or full refund to a paid order.
type SubmitRefundCommand struct {
	OrderID string
	Amount  decimal.Decimal
	Reason  string
}

// RefundOutcome reports an accepted refund.
type RefundOutcome struct {
	Order         domain.Order
	RefundID      string
	FullyRefunded bool
}

// RefundService owns the refund state-transition rules and the ledger.
type RefundService interface {
	SubmitRefund(ctx context.Context, cmd SubmitRefundCommand) (RefundOutcome, error)
}
