package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/salonfield/backoffice/internal/domain"
	"github.com/salonfield/backoffice/internal/gateway"
)

// SubmitRefund implements RefundService. Refunds are validated against the
// live refundable balance inside the per-order critical section, so two
// concurrent refunds can never jointly exceed the captured total.
func (s *Settlement) SubmitRefund(ctx context.Context, cmd SubmitRefundCommand) (RefundOutcome, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return RefundOutcome{}, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return RefundOutcome{}, fmt.Errorf("%w: refund reason is required", ErrInvalidInput)
	}

	release := s.locks.acquire(orderID)
	defer release()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return RefundOutcome{}, mapRepositoryError(err)
	}

	if order.PaymentStatus != domain.PaymentStatusPaid {
		return RefundOutcome{}, fmt.Errorf("%w: order %s has payment status %s, want paid",
			ErrInvalidState, order.OrderNumber, order.PaymentStatus)
	}
	if order.TransactionID == nil {
		return RefundOutcome{}, fmt.Errorf("%w: order %s has no settled transaction", ErrInvalidState, order.OrderNumber)
	}

	refundable := order.RefundableBalance()
	if !cmd.Amount.IsPositive() {
		return RefundOutcome{}, fmt.Errorf("%w: refund amount must be positive, got %s",
			ErrInvalidAmount, cmd.Amount.StringFixed(2))
	}
	if cmd.Amount.GreaterThan(refundable) {
		return RefundOutcome{}, fmt.Errorf("%w: refund amount %s exceeds refundable balance %s",
			ErrInvalidAmount, cmd.Amount.StringFixed(2), refundable.StringFixed(2))
	}

	refund, err := s.refund(ctx, *order.TransactionID, cmd)
	if err != nil {
		// Gateway failure leaves the ledger untouched; the caller may retry.
		s.logger.Warn("refund attempt failed",
			zap.String("orderId", order.ID),
			zap.Error(err),
		)
		return RefundOutcome{}, err
	}

	order.RefundedTotal = order.RefundedTotal.Add(cmd.Amount)
	order.RefundReasons = append(order.RefundReasons, reason)
	order.UpdatedAt = s.clock()

	if order.FullyRefunded() {
		refunded := domain.PaymentStatusRefunded
		if !CanTransition(order, nil, &refunded) {
			return RefundOutcome{}, fmt.Errorf("%w: order %s cannot be marked refunded", ErrInvalidState, order.OrderNumber)
		}
		order.PaymentStatus = refunded
	}

	updated, err := s.orders.Update(ctx, order)
	if err != nil {
		return RefundOutcome{}, mapRepositoryError(err)
	}

	s.logger.Info("refund issued",
		zap.String("orderId", updated.ID),
		zap.String("refundId", refund.RefundID),
		zap.String("amount", cmd.Amount.StringFixed(2)),
		zap.Bool("fullyRefunded", updated.FullyRefunded()),
	)

	return RefundOutcome{
		Order:         updated,
		RefundID:      refund.RefundID,
		FullyRefunded: updated.FullyRefunded(),
	}, nil
}

func (s *Settlement) refund(ctx context.Context, transactionID string, cmd SubmitRefundCommand) (gateway.Refund, error) {
	gwCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	refund, err := s.gateway.Refund(gwCtx, gateway.RefundRequest{
		TransactionID: transactionID,
		Amount:        cmd.Amount,
		Reason:        strings.TrimSpace(cmd.Reason),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return gateway.Refund{}, fmt.Errorf("%w: refund timed out after %s", gateway.ErrUnavailable, s.timeout)
		}
		return gateway.Refund{}, err
	}
	return refund, nil
}
