package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/salonfield/backoffice/internal/domain"
	"github.com/salonfield/backoffice/internal/repositories"
)

type stubOrderRepository struct {
	insertFn func(ctx context.Context, order domain.Order) error
	findFn   func(ctx context.Context, orderID string) (domain.Order, error)
	updateFn func(ctx context.Context, order domain.Order) (domain.Order, error)
	listFn   func(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error)
}

func (s *stubOrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, order)
}

func (s *stubOrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn == nil {
		return domain.Order{}, errors.New("findFn not configured")
	}
	return s.findFn(ctx, orderID)
}

func (s *stubOrderRepository) Update(ctx context.Context, order domain.Order) (domain.Order, error) {
	if s.updateFn == nil {
		order.Version++
		return order, nil
	}
	return s.updateFn(ctx, order)
}

func (s *stubOrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, filter)
}

type stubCounterRepository struct {
	nextFn func(ctx context.Context, counterID string, step int64) (int64, error)
}

func (s *stubCounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if s.nextFn == nil {
		return 1, nil
	}
	return s.nextFn(ctx, counterID, step)
}

func testDraft(t *testing.T) PricedDraft {
	t.Helper()
	draft, err := PriceDraft(
		[]domain.LineItem{{ServiceID: "svc_cut", Name: "Haircut", UnitPrice: decimal.RequireFromString("85.00"), Quantity: 1}},
		decimal.RequireFromString("0.13"),
		decimal.RequireFromString("15"),
	)
	if err != nil {
		t.Fatalf("failed to price draft: %v", err)
	}
	return draft
}

func TestOrderServiceCreateAssignsIdentifiers(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	var inserted domain.Order

	repo := &stubOrderRepository{
		insertFn: func(_ context.Context, order domain.Order) error {
			inserted = order
			return nil
		},
	}
	counters := &stubCounterRepository{
		nextFn: func(_ context.Context, counterID string, step int64) (int64, error) {
			if counterID != "orders" {
				t.Errorf("unexpected counter id %s", counterID)
			}
			if step != 1 {
				t.Errorf("unexpected step %d", step)
			}
			return 42, nil
		},
	}

	svc, err := NewOrderService(OrderServiceDeps{
		Orders:      repo,
		Counters:    counters,
		Clock:       func() time.Time { return now },
		IDGenerator: func() string { return "01TESTULID" },
	})
	if err != nil {
		t.Fatalf("NewOrderService returned error: %v", err)
	}

	order, err := svc.Create(context.Background(), CreateOrderCommand{
		Draft:         testDraft(t),
		Customer:      domain.CustomerRef{ID: "cus_1", Name: "Dana"},
		PaymentMethod: domain.PaymentMethodCreditCard,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if order.ID != "ord_01TESTULID" {
		t.Errorf("unexpected order id %s", order.ID)
	}
	if order.OrderNumber != "ORD-2026-000042" {
		t.Errorf("unexpected order number %s", order.OrderNumber)
	}
	if order.Status != domain.OrderStatusDraft {
		t.Errorf("unexpected status %s", order.Status)
	}
	if order.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("unexpected payment status %s", order.PaymentStatus)
	}
	if order.Version != 1 {
		t.Errorf("unexpected version %d", order.Version)
	}
	if !order.CreatedAt.Equal(now) {
		t.Errorf("unexpected created at %s", order.CreatedAt)
	}
	if got := order.TotalAmount.StringFixed(2); got != "108.80" {
		t.Errorf("unexpected total %s", got)
	}
	if inserted.ID != order.ID {
		t.Errorf("inserted order id %s does not match returned %s", inserted.ID, order.ID)
	}
}

func TestOrderServiceCreateRepricesDraft(t *testing.T) {
	repo := &stubOrderRepository{}
	svc, err := NewOrderService(OrderServiceDeps{Orders: repo, Counters: &stubCounterRepository{}})
	if err != nil {
		t.Fatalf("NewOrderService returned error: %v", err)
	}

	// Tamper with the snapshot; the service must recompute it.
	draft := testDraft(t)
	draft.TotalAmount = decimal.RequireFromString("1.00")
	draft.TaxAmount = decimal.Zero

	order, err := svc.Create(context.Background(), CreateOrderCommand{
		Draft:         draft,
		Customer:      domain.CustomerRef{ID: "cus_1"},
		PaymentMethod: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if got := order.TotalAmount.StringFixed(2); got != "108.80" {
		t.Errorf("tampered total survived: %s", got)
	}
	if got := order.TaxAmount.StringFixed(2); got != "11.05" {
		t.Errorf("tampered tax survived: %s", got)
	}
}

func TestOrderServiceCreateValidation(t *testing.T) {
	svc, err := NewOrderService(OrderServiceDeps{Orders: &stubOrderRepository{}, Counters: &stubCounterRepository{}})
	if err != nil {
		t.Fatalf("NewOrderService returned error: %v", err)
	}

	_, err = svc.Create(context.Background(), CreateOrderCommand{
		Draft:         testDraft(t),
		PaymentMethod: domain.PaymentMethodCash,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing customer: expected ErrInvalidInput, got %v", err)
	}

	_, err = svc.Create(context.Background(), CreateOrderCommand{
		Draft:         testDraft(t),
		Customer:      domain.CustomerRef{ID: "cus_1"},
		PaymentMethod: "barter",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad method: expected ErrInvalidInput, got %v", err)
	}
}

func TestOrderServiceTransitionStatus(t *testing.T) {
	stored := domain.Order{
		ID:            "ord_1",
		OrderNumber:   "ORD-2026-000001",
		Status:        domain.OrderStatusConfirmed,
		PaymentStatus: domain.PaymentStatusPaid,
		TotalAmount:   decimal.RequireFromString("50.00"),
		Version:       1,
	}
	repo := &stubOrderRepository{
		findFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return stored, nil
		},
	}
	svc, err := NewOrderService(OrderServiceDeps{Orders: repo, Counters: &stubCounterRepository{}})
	if err != nil {
		t.Fatalf("NewOrderService returned error: %v", err)
	}

	order, err := svc.TransitionStatus(context.Background(), TransitionStatusCommand{
		OrderID: "ord_1",
		Target:  domain.OrderStatusInProgress,
	})
	if err != nil {
		t.Fatalf("TransitionStatus returned error: %v", err)
	}
	if order.Status != domain.OrderStatusInProgress {
		t.Errorf("unexpected status %s", order.Status)
	}

	_, err = svc.TransitionStatus(context.Background(), TransitionStatusCommand{
		OrderID: "ord_1",
		Target:  domain.OrderStatusDraft,
	})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("backwards transition: expected ErrInvalidState, got %v", err)
	}

	// Same-status transitions are no-ops.
	order, err = svc.TransitionStatus(context.Background(), TransitionStatusCommand{
		OrderID: "ord_1",
		Target:  domain.OrderStatusConfirmed,
	})
	if err != nil {
		t.Fatalf("no-op transition returned error: %v", err)
	}
	if order.Status != domain.OrderStatusConfirmed {
		t.Errorf("no-op changed status to %s", order.Status)
	}
}

func TestOrderServiceCompleteRequiresSettlement(t *testing.T) {
	repo := &stubOrderRepository{
		findFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{
				ID:            "ord_1",
				Status:        domain.OrderStatusInProgress,
				PaymentStatus: domain.PaymentStatusPending,
				TotalAmount:   decimal.RequireFromString("50.00"),
				Version:       1,
			}, nil
		},
	}
	svc, err := NewOrderService(OrderServiceDeps{Orders: repo, Counters: &stubCounterRepository{}})
	if err != nil {
		t.Fatalf("NewOrderService returned error: %v", err)
	}

	_, err = svc.TransitionStatus(context.Background(), TransitionStatusCommand{
		OrderID: "ord_1",
		Target:  domain.OrderStatusCompleted,
	})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestOrderServiceCancelPaidOrderRequiresRefund(t *testing.T) {
	repo := &stubOrderRepository{
		findFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{
				ID:            "ord_1",
				OrderNumber:   "ORD-2026-000001",
				Status:        domain.OrderStatusConfirmed,
				PaymentStatus: domain.PaymentStatusPaid,
				TotalAmount:   decimal.RequireFromString("80.00"),
				Version:       1,
			}, nil
		},
	}
	svc, err := NewOrderService(OrderServiceDeps{Orders: repo, Counters: &stubCounterRepository{}})
	if err != nil {
		t.Fatalf("NewOrderService returned error: %v", err)
	}

	_, err = svc.Cancel(context.Background(), CancelOrderCommand{OrderID: "ord_1", Reason: "client no-show"})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if !strings.Contains(err.Error(), "80.00") {
		t.Errorf("expected refundable balance in message, got %q", err.Error())
	}
}

func TestOrderServiceCancelRecordsReason(t *testing.T) {
	now := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	repo := &stubOrderRepository{
		findFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{
				ID:            "ord_1",
				Status:        domain.OrderStatusDraft,
				PaymentStatus: domain.PaymentStatusPending,
				TotalAmount:   decimal.RequireFromString("80.00"),
				Version:       1,
			}, nil
		},
	}
	svc, err := NewOrderService(OrderServiceDeps{
		Orders:   repo,
		Counters: &stubCounterRepository{},
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewOrderService returned error: %v", err)
	}

	order, err := svc.Cancel(context.Background(), CancelOrderCommand{OrderID: "ord_1", Reason: "client no-show"})
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Errorf("unexpected status %s", order.Status)
	}
	if order.CancelReason == nil || *order.CancelReason != "client no-show" {
		t.Errorf("unexpected cancel reason %v", order.CancelReason)
	}
	if order.CancelledAt == nil || !order.CancelledAt.Equal(now) {
		t.Errorf("unexpected cancelled at %v", order.CancelledAt)
	}
}
