package payments

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"mingshilin.com/app/internal/modules/fulfillment"
	"mingshilin.com/app/internal/modules/orders"
	"mingshilin.com/app/internal/wechatpay"
)

// Service owns the order/payment state machine. It holds no record state
// of its own; everything goes through the injected stores, and per-order
// serialization comes from the store's key locks.
type Service struct {
	orders   orders.Store
	payments Store
	gateway  wechatpay.Gateway
	cfg      wechatpay.Config
	fulfill  *fulfillment.Dispatcher
	logger   *slog.Logger

	// tracks fire-and-forget fulfillment tasks so shutdown and tests can
	// drain them deterministically
	tasks sync.WaitGroup
}

func NewService(os orders.Store, ps Store, gw wechatpay.Gateway, cfg wechatpay.Config, f *fulfillment.Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{orders: os, payments: ps, gateway: gw, cfg: cfg, fulfill: f, logger: logger}
}

// Wait blocks until all dispatched fulfillment tasks have finished.
func (s *Service) Wait() { s.tasks.Wait() }

// isTestIdentity recognizes non-production payer identities that may use
// the synthesized mock intent path. Never true for real openids.
func isTestIdentity(userID string) bool {
	return strings.HasPrefix(userID, "test_")
}

type UnifiedOrderOutput struct {
	OrderID   string                 `json:"orderId"`
	PaymentID string                 `json:"paymentId"`
	Params    wechatpay.ClientParams `json:"-"`
	MockMode  bool                   `json:"mockMode,omitempty"`
}

// UnifiedOrder initiates a payment attempt for a pending order in two
// phases: the attempt is reserved and attached under the order's key
// lock before the gateway is contacted, so an order can never carry two
// non-terminal attempts, then the handshake result is finalized onto the
// reserved record. Only the gateway call itself runs unlocked.
func (s *Service) UnifiedOrder(ctx context.Context, orderID, clientIP string) (UnifiedOrderOutput, error) {
	var (
		attempt Payment
		reuse   *Payment
		expired bool
	)

	o, err := s.orders.Update(ctx, orderID, func(o *orders.Order) error {
		now := time.Now()
		if o.Expired(now) {
			o.Status = orders.StatusCancelled
			o.UpdatedAt = now
			expired = true
			return nil
		}
		if o.Status != orders.StatusPending {
			return ErrOrderNotPayable
		}

		// at most one non-terminal attempt per order: reuse a finalized
		// pending one, refuse while a reservation is mid-handshake, and
		// replace only a terminal (failed) one
		if o.PaymentID != nil {
			if p, err := s.payments.Get(ctx, *o.PaymentID); err == nil {
				switch p.Status {
				case StatusPending:
					reuse = &p
					return nil
				case StatusInitiated:
					return ErrAttemptInFlight
				}
			}
		}

		p := Payment{
			PaymentID: wechatpay.NewPaymentID(),
			OrderID:   o.OrderID,
			UserID:    o.UserID,
			Method:    "wechat",
			Amount:    o.Amount,
			Currency:  o.Currency,
			Status:    StatusInitiated,
			AppID:     s.cfg.AppID,
			MchID:     s.cfg.MchID,
			CreatedAt: now,
		}
		if err := s.payments.Create(ctx, &p); err != nil {
			return err
		}
		attempt = p
		o.PaymentID = &p.PaymentID
		o.UpdatedAt = now
		return nil
	})
	if err != nil {
		return UnifiedOrderOutput{}, err
	}
	if expired {
		return UnifiedOrderOutput{}, ErrOrderExpired
	}
	if reuse != nil {
		return UnifiedOrderOutput{
			OrderID:   o.OrderID,
			PaymentID: reuse.PaymentID,
			Params: wechatpay.ClientParams{
				TimeStamp: reuse.TimeStamp,
				NonceStr:  reuse.NonceStr,
				Package:   "prepay_id=" + reuse.PrepayID,
				SignType:  reuse.SignType,
				PaySign:   reuse.PaySign,
			},
			MockMode: reuse.MockMode,
		}, nil
	}

	result, gerr := s.gateway.UnifiedOrder(ctx, wechatpay.UnifiedOrderRequest{
		OrderID:     o.OrderID,
		Amount:      o.Amount,
		Description: o.Title,
		OpenID:      o.UserID,
		ClientIP:    clientIP,
	})
	if gerr != nil {
		if !isTestIdentity(o.UserID) {
			s.failAttempt(ctx, attempt.PaymentID)
			return UnifiedOrderOutput{}, gerr
		}
		// sandbox fallback for recognized test identities only
		s.logger.WarnContext(ctx, "gateway unavailable, substituting mock intent",
			"order_id", o.OrderID, "user_id", o.UserID, "err", gerr)
		prepayID := "mock_prepay_" + wechatpay.NonceStr(16)
		result = wechatpay.UnifiedOrderResult{
			PrepayID: prepayID,
			Params:   wechatpay.MiniProgramParams(s.cfg, prepayID),
			MockMode: true,
		}
	}

	if _, err := s.payments.Update(ctx, attempt.PaymentID, func(p *Payment) error {
		p.NonceStr = result.Params.NonceStr
		p.TimeStamp = result.Params.TimeStamp
		p.PrepayID = result.PrepayID
		p.SignType = result.Params.SignType
		p.PaySign = result.Params.PaySign
		p.MockMode = result.MockMode
		// a callback may have landed mid-handshake; never regress it
		if p.Status == StatusInitiated {
			p.Status = StatusPending
		}
		return nil
	}); err != nil {
		return UnifiedOrderOutput{}, err
	}

	s.logger.InfoContext(ctx, "payment attempt created",
		"order_id", o.OrderID, "payment_id", attempt.PaymentID, "mock_mode", result.MockMode)

	return UnifiedOrderOutput{
		OrderID:   o.OrderID,
		PaymentID: attempt.PaymentID,
		Params:    result.Params,
		MockMode:  result.MockMode,
	}, nil
}

// failAttempt closes a reserved attempt whose handshake never completed,
// so a later unifiedorder can reserve a fresh one.
func (s *Service) failAttempt(ctx context.Context, paymentID string) {
	if _, err := s.payments.Update(ctx, paymentID, func(p *Payment) error {
		if p.Status == StatusInitiated {
			p.Status = StatusFailed
		}
		return nil
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to close payment attempt",
			"payment_id", paymentID, "err", err)
	}
}

type ConfirmResult struct {
	AlreadyPaid   bool
	TransactionID string
}

// ConfirmPaid is the synchronization point for the two confirmation
// paths (provider callback and status poll). It is idempotent under
// duplicate delivery: a second confirmation for an already-paid order
// returns success without re-applying side effects or re-dispatching
// fulfillment. Amount mismatches are rejected and logged as
// fraud-relevant, never silently accepted.
func (s *Service) ConfirmPaid(ctx context.Context, orderID, transactionID string, amount int) (ConfirmResult, error) {
	already := false
	existingTxn := ""
	rejectedAttempt := ""

	o, err := s.orders.Update(ctx, orderID, func(o *orders.Order) error {
		switch o.Status {
		case orders.StatusPaid, orders.StatusFulfilled:
			already = true
			if o.TransactionID != nil {
				existingTxn = *o.TransactionID
			}
			return nil
		case orders.StatusPending:
			// fall through to confirm
		default:
			return ErrOrderNotPayable
		}

		if amount != o.Amount {
			s.logger.ErrorContext(ctx, "payment amount mismatch, possible tampering",
				"order_id", o.OrderID, "order_amount", o.Amount, "confirmed_amount", amount,
				"transaction_id", transactionID)
			if o.PaymentID != nil {
				rejectedAttempt = *o.PaymentID
			}
			return ErrAmountMismatch
		}

		now := time.Now()
		o.Status = orders.StatusPaid
		o.PaidAt = &now
		o.UpdatedAt = now
		o.TransactionID = &transactionID
		return nil
	})
	if err != nil {
		if rejectedAttempt != "" {
			s.markVerifyRejected(ctx, rejectedAttempt)
		}
		return ConfirmResult{}, err
	}

	if already {
		return ConfirmResult{AlreadyPaid: true, TransactionID: existingTxn}, nil
	}

	s.markPaymentSuccess(ctx, o, transactionID)

	s.logger.InfoContext(ctx, "payment confirmed",
		"order_id", o.OrderID, "transaction_id", transactionID, "amount", amount)

	// fulfillment is decoupled from whichever request confirmed payment
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		s.fulfillOrder(context.WithoutCancel(ctx), o.OrderID)
	}()

	return ConfirmResult{TransactionID: transactionID}, nil
}

// markVerifyRejected records a failed verification on the attempt. The
// attempt stays open: a later confirmation with the right amount may
// still land.
func (s *Service) markVerifyRejected(ctx context.Context, paymentID string) {
	if _, err := s.payments.Update(ctx, paymentID, func(p *Payment) error {
		if p.Terminal() {
			return nil
		}
		v := VerifyRejected
		p.VerifyStatus = &v
		return nil
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to record rejected verification",
			"payment_id", paymentID, "err", err)
	}
}

func (s *Service) markPaymentSuccess(ctx context.Context, o orders.Order, transactionID string) {
	if o.PaymentID == nil {
		return
	}
	if _, err := s.payments.Update(ctx, *o.PaymentID, func(p *Payment) error {
		if p.Status == StatusSuccess {
			return nil // terminal, first confirmation already applied
		}
		now := time.Now()
		p.Status = StatusSuccess
		p.TransactionID = &transactionID
		p.PaidAt = &now
		v := VerifyVerified
		p.VerifyStatus = &v
		return nil
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to finalize payment record",
			"order_id", o.OrderID, "payment_id", *o.PaymentID, "err", err)
	}
}

// fulfillOrder runs the type-specific post-payment effect and marks the
// order fulfilled. Re-entry is a no-op; unknown order types leave the
// order paid without a fulfillment record.
func (s *Service) fulfillOrder(ctx context.Context, orderID string) {
	_, err := s.orders.Update(ctx, orderID, func(o *orders.Order) error {
		if o.Status != orders.StatusPaid {
			return nil
		}

		rec, handled := s.fulfill.Fulfill(*o)
		if !handled {
			return nil
		}

		o.Fulfillment = &rec
		o.Status = orders.StatusFulfilled
		o.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "fulfillment failed", "order_id", orderID, "err", err)
	}
}
