package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one priced, quantified service within an order. Line items are
// immutable once attached to a priced order.
type LineItem struct {
	ServiceID       string
	Name            string
	Category        string
	UnitPrice       decimal.Decimal
	Quantity        int
	StaffID         string
	DurationMinutes int
}

// ExtendedPrice returns unit price multiplied by quantity.
func (li LineItem) ExtendedPrice() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// CustomerRef references the customer an order belongs to. Name and phone are
// denormalised for display only.
type CustomerRef struct {
	ID    string
	Name  string
	Phone string
}

// Order is the settlement aggregate. The pricing snapshot is computed once at
// creation and frozen thereafter; payment evidence is written only by a
// successful payment, and the refund ledger only grows.
type Order struct {
	ID          string
	OrderNumber string

	Customer CustomerRef
	StaffID  string

	Items []LineItem

	// Pricing snapshot, frozen at creation.
	Subtotal      decimal.Decimal
	TaxRate       decimal.Decimal
	TaxAmount     decimal.Decimal
	TipPercentage decimal.Decimal
	TipAmount     decimal.Decimal
	TotalAmount   decimal.Decimal

	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	Status        OrderStatus

	// Payment evidence, set only on successful payment.
	TransactionID      *string
	AuthorizationCode  *string
	CardLast4          *string
	TerminalID         *string
	PaymentCompletedAt *time.Time

	// Refund ledger.
	RefundedTotal decimal.Decimal
	RefundReasons []string

	Notes string

	CancelReason *string
	CancelledAt  *time.Time

	// Version supports optimistic updates at the store.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RefundableBalance returns the total amount minus refunds already applied.
func (o Order) RefundableBalance() decimal.Decimal {
	return o.TotalAmount.Sub(o.RefundedTotal)
}

// FullyRefunded reports whether the ledger has reached the order total.
func (o Order) FullyRefunded() bool {
	return o.RefundedTotal.Equal(o.TotalAmount)
}

// Clone returns a deep copy so callers cannot mutate stored state through
// shared slices or pointers.
func (o Order) Clone() Order {
	cloned := o
	if o.Items != nil {
		cloned.Items = make([]LineItem, len(o.Items))
		copy(cloned.Items, o.Items)
	}
	if o.RefundReasons != nil {
		cloned.RefundReasons = make([]string, len(o.RefundReasons))
		copy(cloned.RefundReasons, o.RefundReasons)
	}
	cloned.TransactionID = cloneStringPtr(o.TransactionID)
	cloned.AuthorizationCode = cloneStringPtr(o.AuthorizationCode)
	cloned.CardLast4 = cloneStringPtr(o.CardLast4)
	cloned.TerminalID = cloneStringPtr(o.TerminalID)
	cloned.CancelReason = cloneStringPtr(o.CancelReason)
	cloned.PaymentCompletedAt = cloneTimePtr(o.PaymentCompletedAt)
	cloned.CancelledAt = cloneTimePtr(o.CancelledAt)
	return cloned
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	ref := *value
	return &ref
}

func cloneTimePtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	ref := *value
	return &ref
}
