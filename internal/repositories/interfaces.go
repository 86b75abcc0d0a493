package repositories

import (
	"context"

	"github.com/salonfield/backoffice/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation
// used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// OrderListFilter narrows List results. Zero values match everything.
type OrderListFilter struct {
	Status        []domain.OrderStatus
	PaymentStatus []domain.PaymentStatus
	CustomerID    string
	Limit         int
}

// OrderRepository persists order aggregates. Update must compare the stored
// version against order.Version and fail with a conflict when they differ,
// so concurrent writers cannot interleave partial updates.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	Update(ctx context.Context, order domain.Order) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, error)
}

// CounterRepository issues monotonically increasing sequences, used for
// order number assignment.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}
