package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("payment not found")

// Store holds payment attempts keyed by payment id. Same contract as the
// order store: Update runs fn under the key's exclusive lock. A payment
// is never mutated after reaching a terminal status except to attach the
// transaction id on first success; Update fns enforce that.
type Store interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id string) (Payment, error)
	Update(ctx context.Context, id string, fn func(*Payment) error) (Payment, error)
}

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
}

type memEntry struct {
	mu      sync.Mutex
	payment Payment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]*memEntry{}}
}

func (s *MemoryStore) Create(_ context.Context, p *Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[p.PaymentID]; exists {
		return fmt.Errorf("payment %s already exists", p.PaymentID)
	}
	s.entries[p.PaymentID] = &memEntry{payment: *p}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Payment, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return Payment{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.payment, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*Payment) error) (Payment, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return Payment{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.payment
	if err := fn(&next); err != nil {
		return e.payment, err
	}
	e.payment = next
	return next, nil
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Payment{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Create(ctx context.Context, p *Payment) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *GormStore) Get(ctx context.Context, id string) (Payment, error) {
	var p Payment
	if err := s.db.WithContext(ctx).First(&p, "payment_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, err
	}
	return p, nil
}

func (s *GormStore) Update(ctx context.Context, id string, fn func(*Payment) error) (Payment, error) {
	var out Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Payment
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "payment_id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		stored := p
		if err := fn(&p); err != nil {
			out = stored
			return err
		}
		if err := tx.WithContext(ctx).Save(&p).Error; err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}
