package payments

import (
	"context"
	"fmt"
	"time"

	"mingshilin.com/app/internal/modules/orders"
	"mingshilin.com/app/internal/wechatpay"
)

type StatusOutput struct {
	OrderID       string     `json:"orderId"`
	OrderStatus   string     `json:"orderStatus"`
	PaymentStatus string     `json:"paymentStatus"`
	Amount        int        `json:"amount"`
	PaidAt        *time.Time `json:"paidAt"`
	TransactionID *string    `json:"transactionId"`
}

// QueryStatus is the polling fallback: when the callback has not arrived
// yet, a still-pending order triggers a read-only provider query, and a
// SUCCESS trade state drives the same ConfirmPaid transition the callback
// would. Gateway trouble during the poll is logged, not surfaced; the
// caller still gets the current local state.
func (s *Service) QueryStatus(ctx context.Context, orderID string) (StatusOutput, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return StatusOutput{}, err
	}
	if o.PaymentID == nil {
		return StatusOutput{}, ErrNotFound
	}
	p, err := s.payments.Get(ctx, *o.PaymentID)
	if err != nil {
		return StatusOutput{}, err
	}

	if o.Expired(time.Now()) {
		if o, err = s.orders.Update(ctx, orderID, func(o *orders.Order) error {
			if o.Expired(time.Now()) {
				o.Status = orders.StatusCancelled
				o.UpdatedAt = time.Now()
			}
			return nil
		}); err != nil {
			return StatusOutput{}, err
		}
	}

	if o.Status == orders.StatusPending && p.Status == StatusPending {
		qr, qerr := s.gateway.QueryOrder(ctx, orderID)
		if qerr != nil {
			s.logger.WarnContext(ctx, "status query against provider failed",
				"order_id", orderID, "err", qerr)
		} else if qr.Success && qr.TradeState == "SUCCESS" {
			if _, cerr := s.ConfirmPaid(ctx, orderID, qr.TransactionID, qr.TotalFee); cerr != nil {
				s.logger.ErrorContext(ctx, "poll-side confirm rejected",
					"order_id", orderID, "err", cerr)
			}
		}

		// re-read: confirm may have advanced both records
		if o, err = s.orders.Get(ctx, orderID); err != nil {
			return StatusOutput{}, err
		}
		if p, err = s.payments.Get(ctx, *o.PaymentID); err != nil {
			return StatusOutput{}, err
		}
	}

	return StatusOutput{
		OrderID:       o.OrderID,
		OrderStatus:   o.Status,
		PaymentStatus: p.Status,
		Amount:        p.Amount,
		PaidAt:        p.PaidAt,
		TransactionID: p.TransactionID,
	}, nil
}

type MockSuccessOutput struct {
	OrderID       string    `json:"orderId"`
	TransactionID string    `json:"transactionId"`
	PaidAt        time.Time `json:"paidAt"`
}

// MockSuccess simulates a confirmed payment. Only honored in the sandbox
// environment or for recognized test identities; a real payer identity in
// live mode can never take this path.
func (s *Service) MockSuccess(ctx context.Context, orderID string) (MockSuccessOutput, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return MockSuccessOutput{}, err
	}
	if s.cfg.Env != wechatpay.EnvSandbox && !isTestIdentity(o.UserID) {
		return MockSuccessOutput{}, ErrMockNotAllowed
	}
	if o.Status != orders.StatusPending {
		return MockSuccessOutput{}, ErrOrderNotPayable
	}

	txn := fmt.Sprintf("MOCK_%d", time.Now().UnixMilli())
	if sg, ok := s.gateway.(*wechatpay.SandboxGateway); ok {
		sg.MarkPaid(orderID, txn, o.Amount)
	}

	res, err := s.ConfirmPaid(ctx, orderID, txn, o.Amount)
	if err != nil {
		return MockSuccessOutput{}, err
	}
	if res.AlreadyPaid {
		txn = res.TransactionID
	}

	return MockSuccessOutput{
		OrderID:       orderID,
		TransactionID: txn,
		PaidAt:        time.Now(),
	}, nil
}
