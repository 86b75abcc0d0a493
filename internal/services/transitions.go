package services

import (
	"slices"

	"github.com/salonfield/backoffice/internal/domain"
)

// Legal edges of the fulfillment axis. Confirmation is driven by payment;
// in_progress and completed by external fulfillment events; cancellation is
// barred once the order completes.
var orderStatusTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusDraft:      {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed:  {domain.OrderStatusInProgress, domain.OrderStatusCancelled},
	domain.OrderStatusInProgress: {domain.OrderStatusCompleted, domain.OrderStatusCancelled},
	domain.OrderStatusCompleted:  {},
	domain.OrderStatusCancelled:  {},
}

// Legal edges of the settlement axis. Retrying after a transient gateway
// fault keeps pending on pending; paid and failed are terminal for the
// payment processor, with paid→refunded owned by the refund processor.
var paymentStatusTransitions = map[domain.PaymentStatus][]domain.PaymentStatus{
	domain.PaymentStatusPending:  {domain.PaymentStatusPending, domain.PaymentStatusPaid, domain.PaymentStatusFailed},
	domain.PaymentStatusPaid:     {domain.PaymentStatusRefunded},
	domain.PaymentStatusRefunded: {},
	domain.PaymentStatusFailed:   {},
}

// CanTransition reports whether moving the order to the proposed statuses is
// legal. Nil proposals leave that axis unchanged. Both processors consult
// this guard before mutating, so the two axes cannot drift apart: completed
// orders must be settled, cancellation never follows completion, and a paid
// order cannot be cancelled until its ledger is fully refunded.
func CanTransition(order domain.Order, proposedStatus *domain.OrderStatus, proposedPayment *domain.PaymentStatus) bool {
	status := order.Status
	payment := order.PaymentStatus

	if proposedStatus != nil && *proposedStatus != status {
		allowed, ok := orderStatusTransitions[status]
		if !ok || !slices.Contains(allowed, *proposedStatus) {
			return false
		}
		status = *proposedStatus
	}

	if proposedPayment != nil && *proposedPayment != payment {
		allowed, ok := paymentStatusTransitions[payment]
		if !ok || !slices.Contains(allowed, *proposedPayment) {
			return false
		}
		payment = *proposedPayment
	}

	if status == domain.OrderStatusCompleted &&
		payment != domain.PaymentStatusPaid && payment != domain.PaymentStatusRefunded {
		return false
	}

	if status == domain.OrderStatusCancelled && payment == domain.PaymentStatusPaid {
		return false
	}

	if payment == domain.PaymentStatusRefunded && !order.FullyRefunded() {
		return false
	}

	return true
}
