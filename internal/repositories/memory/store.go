package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/salonfield/backoffice/internal/domain"
	"github.com/salonfield/backoffice/internal/repositories"
)

// OrderStore provides an in-memory repositories.OrderRepository useful for
// testing and local development. Orders are deep-copied on the way in and
// out so readers only ever observe committed transitions.
type OrderStore struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	seq    []string
}

// NewOrderStore constructs an empty memory-backed order store.
func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]domain.Order)}
}

// Insert implements repositories.OrderRepository.
func (s *OrderStore) Insert(_ context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; ok {
		return repositories.NewConflictError("memory: insert order", fmt.Errorf("order %s already exists", order.ID))
	}

	order.Version = 1
	s.orders[order.ID] = order.Clone()
	s.seq = append(s.seq, order.ID)
	return nil
}

// FindByID implements repositories.OrderRepository.
func (s *OrderStore) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, repositories.NewNotFoundError("memory: find order", fmt.Errorf("order %s", orderID))
	}
	return order.Clone(), nil
}

// Update implements repositories.OrderRepository. The stored version must
// match order.Version; the persisted copy carries the incremented version.
func (s *OrderStore) Update(_ context.Context, order domain.Order) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[order.ID]
	if !ok {
		return domain.Order{}, repositories.NewNotFoundError("memory: update order", fmt.Errorf("order %s", order.ID))
	}
	if current.Version != order.Version {
		return domain.Order{}, repositories.NewConflictError("memory: update order",
			fmt.Errorf("order %s version %d does not match stored version %d", order.ID, order.Version, current.Version))
	}

	order.Version++
	s.orders[order.ID] = order.Clone()
	return order.Clone(), nil
}

// List implements repositories.OrderRepository. Results come back in
// insertion order.
func (s *OrderStore) List(_ context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := lo.FilterMap(s.seq, func(id string, _ int) (domain.Order, bool) {
		order, ok := s.orders[id]
		if !ok {
			return domain.Order{}, false
		}
		if len(filter.Status) > 0 && !slices.Contains(filter.Status, order.Status) {
			return domain.Order{}, false
		}
		if len(filter.PaymentStatus) > 0 && !slices.Contains(filter.PaymentStatus, order.PaymentStatus) {
			return domain.Order{}, false
		}
		if filter.CustomerID != "" && order.Customer.ID != filter.CustomerID {
			return domain.Order{}, false
		}
		return order.Clone(), true
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// CounterStore provides an in-memory repositories.CounterRepository.
type CounterStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewCounterStore constructs an empty memory-backed counter store.
func NewCounterStore() *CounterStore {
	return &CounterStore{counters: make(map[string]int64)}
}

// Next implements repositories.CounterRepository.
func (s *CounterStore) Next(_ context.Context, counterID string, step int64) (int64, error) {
	if step <= 0 {
		return 0, errors.New("memory: counter step must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[counterID] += step
	return s.counters[counterID], nil
}
