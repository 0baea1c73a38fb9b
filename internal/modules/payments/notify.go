package payments

import (
	"context"
	"errors"
	"strconv"
	"time"

	"mingshilin.com/app/internal/modules/orders"
	"mingshilin.com/app/internal/shared/apperr"
	"mingshilin.com/app/internal/wechatpay"
)

// HandleNotify processes an asynchronous provider callback and returns
// the wire-format acknowledgement body. The transport layer always
// answers HTTP 200: a FAIL body is what makes the provider retry.
// Internal failures (bad signature, unknown order, amount mismatch) map
// to FAIL; a processed or already-processed notification maps to SUCCESS.
func (s *Service) HandleNotify(ctx context.Context, body []byte) string {
	data, err := wechatpay.DecodeXML(string(body))
	if err != nil {
		s.logger.WarnContext(ctx, "notify body not decodable", "err", err)
		return ackFail("malformed body")
	}

	if !wechatpay.Verify(data, s.cfg.APIKey) {
		// distinguished from transient faults: a bad signature on a
		// callback is a potential tampering attempt
		s.logger.ErrorContext(ctx, "notify signature verification failed",
			"out_trade_no", data["out_trade_no"],
			"err", apperr.SignatureErr("callback signature mismatch"))
		return ackFail("signature verification failed")
	}

	if data["return_code"] != "SUCCESS" {
		s.logger.WarnContext(ctx, "notify reports communication failure",
			"return_msg", data["return_msg"])
		return ackSuccess()
	}

	orderID := data["out_trade_no"]

	if data["result_code"] != "SUCCESS" {
		// declined payment: terminal for the attempt and the order
		s.logger.WarnContext(ctx, "notify reports declined payment",
			"order_id", orderID, "err_code", data["err_code"], "err_code_des", data["err_code_des"])
		s.markDeclined(ctx, orderID)
		return ackSuccess()
	}

	transactionID := data["transaction_id"]
	totalFee, err := strconv.Atoi(data["total_fee"])
	if err != nil {
		return ackFail("invalid total_fee")
	}

	res, err := s.ConfirmPaid(ctx, orderID, transactionID, totalFee)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		s.logger.ErrorContext(ctx, "notify for unknown order", "order_id", orderID)
		return ackFail("order not found")
	case errors.Is(err, ErrAmountMismatch):
		return ackFail("amount mismatch")
	case errors.Is(err, ErrOrderNotPayable):
		return ackFail("order not payable")
	case err != nil:
		s.logger.ErrorContext(ctx, "notify processing failed", "order_id", orderID, "err", err)
		return ackFail("internal error")
	}

	s.stampNotified(ctx, orderID)

	if res.AlreadyPaid {
		s.logger.InfoContext(ctx, "duplicate notify ignored",
			"order_id", orderID, "transaction_id", res.TransactionID)
	}
	return ackSuccess()
}

func (s *Service) markDeclined(ctx context.Context, orderID string) {
	o, err := s.orders.Update(ctx, orderID, func(o *orders.Order) error {
		if o.Status != orders.StatusPending {
			return nil
		}
		o.Status = orders.StatusFailed
		o.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "could not mark order failed", "order_id", orderID, "err", err)
		return
	}
	if o.PaymentID == nil {
		return
	}
	if _, err := s.payments.Update(ctx, *o.PaymentID, func(p *Payment) error {
		if p.Terminal() {
			return nil
		}
		p.Status = StatusFailed
		v := VerifyVerified
		p.VerifyStatus = &v
		return nil
	}); err != nil {
		s.logger.WarnContext(ctx, "could not mark payment failed", "order_id", orderID, "err", err)
	}
}

func (s *Service) stampNotified(ctx context.Context, orderID string) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil || o.PaymentID == nil {
		return
	}
	_, _ = s.payments.Update(ctx, *o.PaymentID, func(p *Payment) error {
		if p.NotifiedAt == nil {
			now := time.Now()
			p.NotifiedAt = &now
		}
		return nil
	})
}

func ackSuccess() string {
	return wechatpay.EncodeXML(map[string]string{
		"return_code": "SUCCESS",
		"return_msg":  "OK",
	})
}

func ackFail(msg string) string {
	return wechatpay.EncodeXML(map[string]string{
		"return_code": "FAIL",
		"return_msg":  msg,
	})
}
