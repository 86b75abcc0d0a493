package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonfield/backoffice/internal/domain"
	"github.com/salonfield/backoffice/internal/repositories"
)

// Integration tests run only against a real database. Set TEST_DATABASE_URL
// to a disposable PostgreSQL instance to enable them.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pool.Ping(ctx))
	require.NoError(t, Migrate(ctx, pool))
	return pool
}

func newStoredOrder() domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	suffix := uuid.NewString()
	return domain.Order{
		ID:          "ord_" + suffix,
		OrderNumber: "ORD-IT-" + suffix,
		Customer:    domain.CustomerRef{ID: "cus_it", Name: "Dana", Phone: "555-0100"},
		StaffID:     "stf_1",
		Items: []domain.LineItem{
			{ServiceID: "svc_cut", Name: "Haircut", Category: "hair", UnitPrice: decimal.RequireFromString("85.00"), Quantity: 1, StaffID: "stf_1", DurationMinutes: 45},
			{ServiceID: "svc_color", Name: "Color", UnitPrice: decimal.RequireFromString("100.00"), Quantity: 1},
		},
		Subtotal:      decimal.RequireFromString("185.00"),
		TaxRate:       decimal.RequireFromString("0.13"),
		TaxAmount:     decimal.RequireFromString("24.05"),
		TipPercentage: decimal.RequireFromString("20"),
		TipAmount:     decimal.RequireFromString("37.00"),
		TotalAmount:   decimal.RequireFromString("246.05"),
		PaymentMethod: domain.PaymentMethodCreditCard,
		PaymentStatus: domain.PaymentStatusPending,
		Status:        domain.OrderStatusDraft,
		RefundedTotal: decimal.Zero,
		Notes:         "integration fixture",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestOrderStoreRoundTrip(t *testing.T) {
	pool := testPool(t)
	store := NewOrderStore(pool)
	ctx := context.Background()

	order := newStoredOrder()
	require.NoError(t, store.Insert(ctx, order))

	found, err := store.FindByID(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, order.OrderNumber, found.OrderNumber)
	assert.Equal(t, order.Customer, found.Customer)
	assert.Equal(t, int64(1), found.Version)
	assert.True(t, found.Subtotal.Equal(order.Subtotal), "subtotal = %s", found.Subtotal)
	assert.True(t, found.TotalAmount.Equal(order.TotalAmount), "total = %s", found.TotalAmount)
	require.Len(t, found.Items, 2)
	assert.Equal(t, "Haircut", found.Items[0].Name)
	assert.True(t, found.Items[0].UnitPrice.Equal(decimal.RequireFromString("85.00")))
	assert.Equal(t, 45, found.Items[0].DurationMinutes)
	assert.Nil(t, found.TransactionID)
	assert.Empty(t, found.RefundReasons)
}

func TestOrderStoreInsertDuplicate(t *testing.T) {
	pool := testPool(t)
	store := NewOrderStore(pool)
	ctx := context.Background()

	order := newStoredOrder()
	require.NoError(t, store.Insert(ctx, order))

	err := store.Insert(ctx, order)
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.True(t, repoErr.IsConflict())
}

func TestOrderStoreUpdateVersionConflict(t *testing.T) {
	pool := testPool(t)
	store := NewOrderStore(pool)
	ctx := context.Background()

	order := newStoredOrder()
	require.NoError(t, store.Insert(ctx, order))

	current, err := store.FindByID(ctx, order.ID)
	require.NoError(t, err)

	txn := "TXN-IT-1"
	current.PaymentStatus = domain.PaymentStatusPaid
	current.Status = domain.OrderStatusConfirmed
	current.TransactionID = &txn
	current.UpdatedAt = time.Now().UTC()

	updated, err := store.Update(ctx, current)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	// The stale copy still carries version 1.
	current.Version = 1
	_, err = store.Update(ctx, current)
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.True(t, repoErr.IsConflict())

	found, err := store.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, found.PaymentStatus)
	require.NotNil(t, found.TransactionID)
	assert.Equal(t, txn, *found.TransactionID)
}

func TestOrderStoreUpdateUnknownOrder(t *testing.T) {
	pool := testPool(t)
	store := NewOrderStore(pool)

	order := newStoredOrder()
	order.Version = 1
	_, err := store.Update(context.Background(), order)
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.True(t, repoErr.IsNotFound())
}

func TestOrderStoreListFilters(t *testing.T) {
	pool := testPool(t)
	store := NewOrderStore(pool)
	ctx := context.Background()

	customerID := "cus_" + uuid.NewString()

	pending := newStoredOrder()
	pending.Customer.ID = customerID
	require.NoError(t, store.Insert(ctx, pending))

	paid := newStoredOrder()
	paid.Customer.ID = customerID
	paid.Status = domain.OrderStatusConfirmed
	paid.PaymentStatus = domain.PaymentStatusPaid
	require.NoError(t, store.Insert(ctx, paid))

	orders, err := store.List(ctx, repositories.OrderListFilter{
		CustomerID:    customerID,
		PaymentStatus: []domain.PaymentStatus{domain.PaymentStatusPaid},
	})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, paid.ID, orders[0].ID)
	require.Len(t, orders[0].Items, 2)

	orders, err = store.List(ctx, repositories.OrderListFilter{CustomerID: customerID, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCounterStoreNextIncrements(t *testing.T) {
	pool := testPool(t)
	store := NewCounterStore(pool)
	ctx := context.Background()

	counterID := fmt.Sprintf("it-%s", uuid.NewString())

	first, err := store.Next(ctx, counterID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := store.Next(ctx, counterID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)

	_, err = store.Next(ctx, counterID, 0)
	require.Error(t, err)
}
