package services

import "sync"

// OrderLocks serializes mutating operations per order. The order service and
// the settlement processors share one registry, so a cancel or status change
// cannot interleave with a payment or refund critical section; the gateway
// round trip happens inside the held lock.
type OrderLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewOrderLocks constructs an empty lock registry.
func NewOrderLocks() *OrderLocks {
	return &OrderLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for orderID and returns its release func.
func (l *OrderLocks) acquire(orderID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[orderID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[orderID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
