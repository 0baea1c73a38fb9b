package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"mingshilin.com/app/internal/wechatpay"
)

var ErrInvalidAmount = errors.New("amount must be a positive integer in minor units")

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

type CreateOrderInput struct {
	UserID       string
	OrderType    string
	Amount       int
	Title        string
	Description  string
	OrderDetails map[string]any
	ContactInfo  map[string]any
}

func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (Order, error) {
	if in.Amount <= 0 {
		return Order{}, ErrInvalidAmount
	}

	now := time.Now()
	o := Order{
		OrderID:      wechatpay.NewOrderID(),
		UserID:       in.UserID,
		OrderType:    in.OrderType,
		Status:       StatusPending,
		Amount:       in.Amount,
		Currency:     "CNY",
		Title:        in.Title,
		Description:  in.Description,
		OrderDetails: toJSON(in.OrderDetails),
		ContactInfo:  toJSON(in.ContactInfo),
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiredAt:    now.Add(OrderTTL),
	}

	if err := s.store.Create(ctx, &o); err != nil {
		return Order{}, err
	}

	s.logger.InfoContext(ctx, "order created",
		"order_id", o.OrderID, "order_type", o.OrderType, "amount", o.Amount)
	return o, nil
}

// Get returns the order, lazily cancelling it when a pending order is
// observed past its expiry. No background sweeper exists; expiry is
// applied by whichever operation sees it first.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !o.Expired(time.Now()) {
		return o, nil
	}
	return s.Expire(ctx, id)
}

// Expire cancels a pending order past its TTL. Racing with a concurrent
// confirm is safe: the status check runs under the order's key lock.
func (s *Service) Expire(ctx context.Context, id string) (Order, error) {
	o, err := s.store.Update(ctx, id, func(o *Order) error {
		if !o.Expired(time.Now()) {
			return nil
		}
		now := time.Now()
		o.Status = StatusCancelled
		o.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	if o.Status == StatusCancelled {
		s.logger.InfoContext(ctx, "order expired", "order_id", id)
	}
	return o, nil
}

func toJSON(m map[string]any) datatypes.JSON {
	if m == nil {
		m = map[string]any{}
	}
	j, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(j)
}
