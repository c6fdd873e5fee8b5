package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// CustomerLocker hands out one exclusive lock per customer id. Locks are
// created on first use and kept for the life of the process.
type CustomerLocker struct {
	mu    sync.RWMutex
	locks map[uuid.UUID]*semaphore.Weighted
}

func NewCustomerLocker() *CustomerLocker {
	return &CustomerLocker{locks: make(map[uuid.UUID]*semaphore.Weighted)}
}

// Acquire blocks until the customer's lock is free or ctx is done. The
// returned release func must be called exactly once.
func (l *CustomerLocker) Acquire(ctx context.Context, customerID uuid.UUID) (func(), error) {
	lock := l.getOrCreate(customerID)
	if err := lock.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { lock.Release(1) })
	}, nil
}

func (l *CustomerLocker) getOrCreate(customerID uuid.UUID) *semaphore.Weighted {
	l.mu.RLock()
	lock, ok := l.locks[customerID]
	l.mu.RUnlock()
	if ok {
		return lock
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if lock, ok = l.locks[customerID]; ok {
		return lock
	}
	lock = semaphore.NewWeighted(1)
	l.locks[customerID] = lock
	return lock
}

// Size reports how many customer locks have been created.
func (l *CustomerLocker) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.locks)
}
