package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the durable implementation: per-order serialization comes
// from a row lock inside a transaction rather than an in-process mutex.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Order{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Create(ctx context.Context, o *Order) error {
	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		if isDup(err) {
			return fmt.Errorf("order %s already exists", o.OrderID)
		}
		return err
	}
	return nil
}

func isDup(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func (s *GormStore) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	if err := s.db.WithContext(ctx).First(&o, "order_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return o, nil
}

func (s *GormStore) Update(ctx context.Context, id string, fn func(*Order) error) (Order, error) {
	var out Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o Order
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, "order_id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		stored := o
		if err := fn(&o); err != nil {
			out = stored
			return err
		}
		if err := tx.WithContext(ctx).Save(&o).Error; err != nil {
			return err
		}
		out = o
		return nil
	})
	return out, err
}
