package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/salonfield/backoffice/internal/domain"
)

func orderIn(status domain.OrderStatus, payment domain.PaymentStatus) domain.Order {
	return domain.Order{
		Status:        status,
		PaymentStatus: payment,
		TotalAmount:   decimal.RequireFromString("100.00"),
	}
}

func TestCanTransitionFulfillmentAxis(t *testing.T) {
	confirmed := domain.OrderStatusConfirmed
	inProgress := domain.OrderStatusInProgress
	completed := domain.OrderStatusCompleted
	cancelled := domain.OrderStatusCancelled
	draft := domain.OrderStatusDraft

	tests := []struct {
		name   string
		order  domain.Order
		target *domain.OrderStatus
		want   bool
	}{
		{"draft to confirmed", orderIn(draft, domain.PaymentStatusPending), &confirmed, true},
		{"draft to completed skips stages", orderIn(draft, domain.PaymentStatusPaid), &completed, false},
		{"confirmed to in_progress", orderIn(confirmed, domain.PaymentStatusPaid), &inProgress, true},
		{"in_progress to completed paid", orderIn(inProgress, domain.PaymentStatusPaid), &completed, true},
		{"in_progress to completed unpaid", orderIn(inProgress, domain.PaymentStatusPending), &completed, false},
		{"completed is terminal", orderIn(completed, domain.PaymentStatusPaid), &cancelled, false},
		{"cancelled is terminal", orderIn(cancelled, domain.PaymentStatusPending), &confirmed, false},
		{"backwards move", orderIn(inProgress, domain.PaymentStatusPaid), &confirmed, false},
		{"cancel pending order", orderIn(confirmed, domain.PaymentStatusPending), &cancelled, true},
		{"cancel paid order", orderIn(confirmed, domain.PaymentStatusPaid), &cancelled, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.order, tc.target, nil); got != tc.want {
				t.Errorf("CanTransition = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanTransitionPaymentAxis(t *testing.T) {
	pending := domain.PaymentStatusPending
	paid := domain.PaymentStatusPaid
	failed := domain.PaymentStatusFailed
	refunded := domain.PaymentStatusRefunded

	tests := []struct {
		name   string
		order  domain.Order
		target *domain.PaymentStatus
		want   bool
	}{
		{"pending to paid", orderIn(domain.OrderStatusDraft, pending), &paid, true},
		{"pending to failed", orderIn(domain.OrderStatusDraft, pending), &failed, true},
		{"pending retry", orderIn(domain.OrderStatusDraft, pending), &pending, true},
		{"failed is terminal", orderIn(domain.OrderStatusDraft, failed), &paid, false},
		{"paid cannot revert", orderIn(domain.OrderStatusConfirmed, paid), &pending, false},
		{"refunded is terminal", orderIn(domain.OrderStatusConfirmed, refunded), &paid, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.order, nil, tc.target); got != tc.want {
				t.Errorf("CanTransition = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanTransitionRefundedRequiresFullLedger(t *testing.T) {
	refunded := domain.PaymentStatusRefunded

	partial := orderIn(domain.OrderStatusConfirmed, domain.PaymentStatusPaid)
	partial.RefundedTotal = decimal.RequireFromString("40.00")
	if CanTransition(partial, nil, &refunded) {
		t.Error("partially refunded order must not move to refunded")
	}

	full := orderIn(domain.OrderStatusConfirmed, domain.PaymentStatusPaid)
	full.RefundedTotal = full.TotalAmount
	if !CanTransition(full, nil, &refunded) {
		t.Error("fully refunded order must move to refunded")
	}
}

func TestCanTransitionCancelAfterFullRefund(t *testing.T) {
	cancelled := domain.OrderStatusCancelled

	order := orderIn(domain.OrderStatusConfirmed, domain.PaymentStatusRefunded)
	order.RefundedTotal = order.TotalAmount
	if !CanTransition(order, &cancelled, nil) {
		t.Error("refunded order should be cancellable")
	}
}
