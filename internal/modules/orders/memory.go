package orders

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps orders in a map guarded by a read/write mutex for
// lookups plus a per-entry mutex so concurrent updates to the same order
// serialize without blocking unrelated orders.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
}

type memEntry struct {
	mu    sync.Mutex
	order Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]*memEntry{}}
}

func (s *MemoryStore) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[o.OrderID]; exists {
		return fmt.Errorf("order %s already exists", o.OrderID)
	}
	s.entries[o.OrderID] = &memEntry{order: *o}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Order, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return Order{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.order, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*Order) error) (Order, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return Order{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.order
	if err := fn(&next); err != nil {
		return e.order, err
	}
	e.order = next
	return next, nil
}
