package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/salonfield/backoffice/internal/domain"
	"github.com/salonfield/backoffice/internal/repositories"
)

const (
	orderIDPrefix      = "ord_"
	orderNumberCounter = "orders"
)

// OrderServiceDeps bundles collaborators required to construct the order
// service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Counters    repositories.CounterRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      *zap.Logger

	// Locks must be the same registry the settlement processors use, so a
	// cancel or status change cannot race a payment or refund in flight.
	Locks *OrderLocks
}

type orderService struct {
	orders   repositories.OrderRepository
	counters repositories.CounterRepository
	clock    func() time.Time
	newID    func() string
	logger   *zap.Logger
	locks    *OrderLocks
}

// NewOrderService wires dependencies into a concrete OrderService.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	locks := deps.Locks
	if locks == nil {
		locks = NewOrderLocks()
	}

	return &orderService{
		orders:   deps.Orders,
		counters: deps.Counters,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
		locks:  locks,
	}, nil
}

func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	customerID := strings.TrimSpace(cmd.Customer.ID)
	if customerID == "" {
		return domain.Order{}, fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}
	if _, err := domain.ToPaymentMethod(string(cmd.PaymentMethod)); err != nil {
		return domain.Order{}, fmt.Errorf("%w: payment method %q", ErrInvalidInput, cmd.PaymentMethod)
	}

	// Re-price rather than trusting the caller's snapshot; PriceDraft is
	// deterministic, so a draft priced through the engine survives unchanged.
	draft, err := PriceDraft(cmd.Draft.Items, cmd.Draft.TaxRate, cmd.Draft.TipPercentage)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.clock()
	number, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		return domain.Order{}, mapRepositoryError(err)
	}

	order := domain.Order{
		ID:          orderIDPrefix + s.newID(),
		OrderNumber: number,
		Customer: domain.CustomerRef{
			ID:    customerID,
			Name:  strings.TrimSpace(cmd.Customer.Name),
			Phone: strings.TrimSpace(cmd.Customer.Phone),
		},
		StaffID:       strings.TrimSpace(cmd.StaffID),
		Items:         draft.Items,
		Subtotal:      draft.Subtotal,
		TaxRate:       draft.TaxRate,
		TaxAmount:     draft.TaxAmount,
		TipPercentage: draft.TipPercentage,
		TipAmount:     draft.TipAmount,
		TotalAmount:   draft.TotalAmount,
		PaymentMethod: cmd.PaymentMethod,
		PaymentStatus: domain.PaymentStatusPending,
		Status:        domain.OrderStatusDraft,
		Notes:         strings.TrimSpace(cmd.Notes),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return domain.Order{}, mapRepositoryError(err)
	}

	s.logger.Info("order created",
		zap.String("orderId", order.ID),
		zap.String("orderNumber", order.OrderNumber),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)

	return order, nil
}

func (s *orderService) Get(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return orders, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, cmd TransitionStatusCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	if _, err := domain.ToOrderStatus(string(cmd.Target)); err != nil {
		return domain.Order{}, fmt.Errorf("%w: order status %q", ErrInvalidInput, cmd.Target)
	}

	release := s.locks.acquire(orderID)
	defer release()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, mapRepositoryError(err)
	}

	if order.Status == cmd.Target {
		return order, nil
	}

	target := cmd.Target
	if !CanTransition(order, &target, nil) {
		return domain.Order{}, fmt.Errorf("%w: cannot move order %s from %s to %s (payment status %s)",
			ErrInvalidState, order.OrderNumber, order.Status, target, order.PaymentStatus)
	}

	prev := order.Status
	order.Status = target
	order.UpdatedAt = s.clock()

	updated, err := s.orders.Update(ctx, order)
	if err != nil {
		return domain.Order{}, mapRepositoryError(err)
	}

	s.logger.Info("order status changed",
		zap.String("orderId", updated.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(updated.Status)),
	)

	return updated, nil
}

func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}

	release := s.locks.acquire(orderID)
	defer release()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, mapRepositoryError(err)
	}

	target := domain.OrderStatusCancelled
	if !CanTransition(order, &target, nil) {
		if order.PaymentStatus == domain.PaymentStatusPaid {
			return domain.Order{}, fmt.Errorf("%w: order %s is paid; refund %s before cancelling",
				ErrInvalidState, order.OrderNumber, order.RefundableBalance().StringFixed(2))
		}
		return domain.Order{}, fmt.Errorf("%w: order %s cannot be cancelled from %s",
			ErrInvalidState, order.OrderNumber, order.Status)
	}

	now := s.clock()
	order.Status = domain.OrderStatusCancelled
	order.CancelledAt = &now
	if reason := strings.TrimSpace(cmd.Reason); reason != "" {
		order.CancelReason = &reason
	}
	order.UpdatedAt = now

	updated, err := s.orders.Update(ctx, order)
	if err != nil {
		return domain.Order{}, mapRepositoryError(err)
	}

	s.logger.Info("order cancelled",
		zap.String("orderId", updated.ID),
		zap.String("reason", strings.TrimSpace(cmd.Reason)),
	)

	return updated, nil
}

func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, orderNumberCounter, 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%04d-%06d", now.Year(), seq), nil
}
