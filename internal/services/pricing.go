package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/salonfield/backoffice/internal/domain"
)

var (
	decimalZero    = decimal.Zero
	decimalOne     = decimal.NewFromInt(1)
	decimalHundred = decimal.NewFromInt(100)
)

// PricedDraft is the frozen pricing snapshot for a prospective order. Tax
// and tip are each rounded from the subtotal independently, so re-pricing
// the same inputs always reproduces the same snapshot.
type PricedDraft struct {
	Items         []domain.LineItem
	TaxRate       decimal.Decimal
	TipPercentage decimal.Decimal
	Subtotal      decimal.Decimal
	TaxAmount     decimal.Decimal
	TipAmount     decimal.Decimal
	TotalAmount   decimal.Decimal
}

// PriceDraft computes the pricing snapshot for the given line items. It is
// pure and deterministic: no side effects, safe to call repeatedly.
//
// Amounts are rounded half-up to two decimal places; tax and tip are both
// derived from the unrounded subtotal, never from each other.
func PriceDraft(items []domain.LineItem, taxRate, tipPercentage decimal.Decimal) (PricedDraft, error) {
	if len(items) == 0 {
		return PricedDraft{}, fmt.Errorf("%w: at least one line item is required", ErrInvalidInput)
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(decimalOne) {
		return PricedDraft{}, fmt.Errorf("%w: tax rate %s must be between 0 and 1", ErrInvalidInput, taxRate)
	}
	if tipPercentage.IsNegative() || tipPercentage.GreaterThan(decimalHundred) {
		return PricedDraft{}, fmt.Errorf("%w: tip percentage %s must be between 0 and 100", ErrInvalidInput, tipPercentage)
	}

	subtotal := decimalZero
	for i, item := range items {
		if item.UnitPrice.IsNegative() {
			return PricedDraft{}, fmt.Errorf("%w: line item %d has negative unit price %s", ErrInvalidInput, i, item.UnitPrice)
		}
		// Prices are whole cents, so the subtotal equals the sum of extended
		// prices exactly, with no rounding.
		if !item.UnitPrice.Equal(item.UnitPrice.Round(2)) {
			return PricedDraft{}, fmt.Errorf("%w: line item %d unit price %s has more than two decimal places", ErrInvalidInput, i, item.UnitPrice)
		}
		if item.Quantity < 1 {
			return PricedDraft{}, fmt.Errorf("%w: line item %d has quantity %d, want at least 1", ErrInvalidInput, i, item.Quantity)
		}
		subtotal = subtotal.Add(item.ExtendedPrice())
	}

	// decimal.Round rounds half away from zero, which is round-half-up for
	// the non-negative amounts permitted here.
	taxAmount := subtotal.Mul(taxRate).Round(2)
	tipAmount := subtotal.Mul(tipPercentage).Div(decimalHundred).Round(2)

	draft := PricedDraft{
		Items:         make([]domain.LineItem, len(items)),
		TaxRate:       taxRate,
		TipPercentage: tipPercentage,
		Subtotal:      subtotal,
		TaxAmount:     taxAmount,
		TipAmount:     tipAmount,
	}
	copy(draft.Items, items)
	draft.TotalAmount = draft.Subtotal.Add(taxAmount).Add(tipAmount)

	return draft, nil
}
