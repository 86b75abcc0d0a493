package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/salonfield/backoffice/internal/domain"
	"github.com/salonfield/backoffice/internal/repositories"
)

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool {
	return a.Equal(b)
})

func sampleOrder(id string) domain.Order {
	return domain.Order{
		ID:          id,
		OrderNumber: "ORD-2026-000001",
		Customer:    domain.CustomerRef{ID: "cus_1", Name: "Dana"},
		Items: []domain.LineItem{
			{ServiceID: "svc_cut", Name: "Haircut", UnitPrice: decimal.RequireFromString("85.00"), Quantity: 1},
		},
		Subtotal:      decimal.RequireFromString("85.00"),
		TaxRate:       decimal.RequireFromString("0.13"),
		TaxAmount:     decimal.RequireFromString("11.05"),
		TipPercentage: decimal.RequireFromString("15"),
		TipAmount:     decimal.RequireFromString("12.75"),
		TotalAmount:   decimal.RequireFromString("108.80"),
		PaymentMethod: domain.PaymentMethodCreditCard,
		PaymentStatus: domain.PaymentStatusPending,
		Status:        domain.OrderStatusDraft,
		RefundedTotal: decimal.Zero,
		CreatedAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func isRepoError(err error, check func(repositories.RepositoryError) bool) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && check(repoErr)
}

func TestOrderStoreInsertAndFind(t *testing.T) {
	store := NewOrderStore()
	order := sampleOrder("ord_1")

	if err := store.Insert(context.Background(), order); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	found, err := store.FindByID(context.Background(), "ord_1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}

	order.Version = 1
	if diff := cmp.Diff(order, found, decimalComparer); diff != "" {
		t.Errorf("stored order mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderStoreInsertDuplicateConflicts(t *testing.T) {
	store := NewOrderStore()
	order := sampleOrder("ord_1")

	if err := store.Insert(context.Background(), order); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	err := store.Insert(context.Background(), order)
	if !isRepoError(err, repositories.RepositoryError.IsConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}
}

func TestOrderStoreFindUnknownIsNotFound(t *testing.T) {
	store := NewOrderStore()
	_, err := store.FindByID(context.Background(), "ord_missing")
	if !isRepoError(err, repositories.RepositoryError.IsNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestOrderStoreUpdateChecksVersion(t *testing.T) {
	store := NewOrderStore()
	if err := store.Insert(context.Background(), sampleOrder("ord_1")); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	current, err := store.FindByID(context.Background(), "ord_1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}

	current.Notes = "updated"
	updated, err := store.Update(context.Background(), current)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2", updated.Version)
	}

	// Writing with the stale version loses the race.
	current.Notes = "stale write"
	_, err = store.Update(context.Background(), current)
	if !isRepoError(err, repositories.RepositoryError.IsConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}
}

func TestOrderStoreCloneIsolation(t *testing.T) {
	store := NewOrderStore()
	if err := store.Insert(context.Background(), sampleOrder("ord_1")); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	found, err := store.FindByID(context.Background(), "ord_1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	found.Items[0].Name = "mutated"
	found.RefundReasons = append(found.RefundReasons, "mutated")

	fresh, err := store.FindByID(context.Background(), "ord_1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if fresh.Items[0].Name != "Haircut" {
		t.Errorf("caller mutation leaked into store: %s", fresh.Items[0].Name)
	}
	if len(fresh.RefundReasons) != 0 {
		t.Errorf("caller mutation leaked refund reasons: %v", fresh.RefundReasons)
	}
}

func TestOrderStoreListFilters(t *testing.T) {
	store := NewOrderStore()

	draft := sampleOrder("ord_1")
	paid := sampleOrder("ord_2")
	paid.Status = domain.OrderStatusConfirmed
	paid.PaymentStatus = domain.PaymentStatusPaid
	other := sampleOrder("ord_3")
	other.Customer.ID = "cus_2"

	for _, order := range []domain.Order{draft, paid, other} {
		if err := store.Insert(context.Background(), order); err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}
	}

	orders, err := store.List(context.Background(), repositories.OrderListFilter{
		Status: []domain.OrderStatus{domain.OrderStatusConfirmed},
	})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "ord_2" {
		t.Errorf("status filter returned %v", orderIDs(orders))
	}

	orders, err = store.List(context.Background(), repositories.OrderListFilter{
		PaymentStatus: []domain.PaymentStatus{domain.PaymentStatusPending},
		CustomerID:    "cus_1",
	})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "ord_1" {
		t.Errorf("combined filter returned %v", orderIDs(orders))
	}

	orders, err = store.List(context.Background(), repositories.OrderListFilter{Limit: 2})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != "ord_1" || orders[1].ID != "ord_2" {
		t.Errorf("limited list returned %v, want insertion order", orderIDs(orders))
	}
}

func orderIDs(orders []domain.Order) []string {
	ids := make([]string, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	return ids
}

func TestCounterStoreNext(t *testing.T) {
	store := NewCounterStore()

	first, err := store.Next(context.Background(), "orders", 1)
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if first != 1 {
		t.Errorf("first value = %d, want 1", first)
	}

	second, err := store.Next(context.Background(), "orders", 1)
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if second != 2 {
		t.Errorf("second value = %d, want 2", second)
	}

	other, err := store.Next(context.Background(), "invoices", 5)
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if other != 5 {
		t.Errorf("stepped value = %d, want 5", other)
	}

	if _, err := store.Next(context.Background(), "orders", 0); err == nil {
		t.Error("expected error for non-positive step")
	}
}
