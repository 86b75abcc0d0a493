package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/salonfield/backoffice/internal/domain"
	"github.com/salonfield/backoffice/internal/gateway"
	"github.com/salonfield/backoffice/internal/repositories"
)

const defaultGatewayTimeout = 10 * time.Second

// SettlementDeps bundles collaborators for the payment and refund
// processors. Both share one per-order lock registry so their critical
// sections exclude each other.
type SettlementDeps struct {
	Orders         repositories.OrderRepository
	Gateway        gateway.Provider
	GatewayTimeout time.Duration
	Clock          func() time.Time
	Logger         *zap.Logger
	Locks          *OrderLocks
}

// Settlement implements PaymentService and RefundService over a shared
// order store and payment gateway.
type Settlement struct {
	orders  repositories.OrderRepository
	gateway gateway.Provider
	timeout time.Duration
	clock   func() time.Time
	logger  *zap.Logger
	locks   *OrderLocks
}

// NewSettlement wires dependencies into the settlement processors.
func NewSettlement(deps SettlementDeps) (*Settlement, error) {
	if deps.Orders == nil {
		return nil, errors.New("settlement: order repository is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("settlement: payment gateway is required")
	}

	timeout := deps.GatewayTimeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	locks := deps.Locks
	if locks == nil {
		locks = NewOrderLocks()
	}

	return &Settlement{
		orders:  deps.Orders,
		gateway: deps.Gateway,
		timeout: timeout,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
		locks:  locks,
	}, nil
}

// SubmitPayment implements PaymentService. The critical section spans the
// precondition check through the ledger mutation; the gateway round trip
// happens inside it so a concurrent retry cannot observe stale state.
func (s *Settlement) SubmitPayment(ctx context.Context, cmd SubmitPaymentCommand) (PaymentOutcome, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return PaymentOutcome{}, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	if _, err := domain.ToPaymentMethod(string(cmd.Method)); err != nil {
		return PaymentOutcome{}, fmt.Errorf("%w: payment method %q", ErrInvalidInput, cmd.Method)
	}

	release := s.locks.acquire(orderID)
	defer release()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return PaymentOutcome{}, mapRepositoryError(err)
	}

	if order.PaymentStatus != domain.PaymentStatusPending {
		return PaymentOutcome{}, fmt.Errorf("%w: order %s has payment status %s, want pending",
			ErrInvalidState, order.OrderNumber, order.PaymentStatus)
	}
	if order.Status == domain.OrderStatusCancelled {
		return PaymentOutcome{}, fmt.Errorf("%w: order %s is cancelled", ErrInvalidState, order.OrderNumber)
	}

	auth, err := s.authorize(ctx, order, cmd.Method)
	if err != nil {
		if gateway.IsRetryable(err) {
			// Transient fault or timeout: the order stays pending and the
			// caller may retry with the same or a different method.
			s.logger.Warn("payment attempt failed",
				zap.String("orderId", order.ID),
				zap.Error(err),
			)
			return PaymentOutcome{}, err
		}

		order.PaymentStatus = domain.PaymentStatusFailed
		order.UpdatedAt = s.clock()
		if _, updateErr := s.orders.Update(ctx, order); updateErr != nil {
			return PaymentOutcome{}, mapRepositoryError(updateErr)
		}

		s.logger.Warn("payment declined",
			zap.String("orderId", order.ID),
			zap.Error(err),
		)
		return PaymentOutcome{}, err
	}

	now := s.clock()
	paid := domain.PaymentStatusPaid
	order.PaymentMethod = cmd.Method
	order.TransactionID = &auth.TransactionID
	order.PaymentCompletedAt = &now
	if auth.AuthorizationCode != "" {
		order.AuthorizationCode = &auth.AuthorizationCode
	}
	if auth.TerminalID != "" {
		order.TerminalID = &auth.TerminalID
	}
	if cmd.Method.IsCard() && auth.CardLast4 != "" {
		order.CardLast4 = &auth.CardLast4
	}

	var target *domain.OrderStatus
	if order.Status == domain.OrderStatusDraft {
		confirmed := domain.OrderStatusConfirmed
		target = &confirmed
	}
	if !CanTransition(order, target, &paid) {
		return PaymentOutcome{}, fmt.Errorf("%w: order %s cannot accept payment", ErrInvalidState, order.OrderNumber)
	}

	order.PaymentStatus = paid
	if target != nil {
		order.Status = *target
	}
	order.UpdatedAt = now

	updated, err := s.orders.Update(ctx, order)
	if err != nil {
		return PaymentOutcome{}, mapRepositoryError(err)
	}

	s.logger.Info("payment captured",
		zap.String("orderId", updated.ID),
		zap.String("transactionId", auth.TransactionID),
		zap.String("method", string(cmd.Method)),
		zap.String("amount", updated.TotalAmount.StringFixed(2)),
	)

	return PaymentOutcome{Order: updated, TransactionID: auth.TransactionID}, nil
}

// authorize runs the gateway call on a detached, bounded context: the
// caller abandoning its wait must not cancel an operation that may still
// settle funds.
func (s *Settlement) authorize(ctx context.Context, order domain.Order, method domain.PaymentMethod) (gateway.Authorization, error) {
	gwCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	auth, err := s.gateway.Authorize(gwCtx, gateway.AuthorizeRequest{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Amount:      order.TotalAmount,
		Method:      method,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return gateway.Authorization{}, fmt.Errorf("%w: authorize timed out after %s", gateway.ErrUnavailable, s.timeout)
		}
		return gateway.Authorization{}, err
	}
	return auth, nil
}
