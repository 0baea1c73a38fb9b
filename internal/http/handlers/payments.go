package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"mingshilin.com/app/internal/http/middleware"
	"mingshilin.com/app/internal/modules/orders"
	"mingshilin.com/app/internal/modules/payments"
	"mingshilin.com/app/internal/shared/apperr"
	"mingshilin.com/app/internal/wechatpay"
)

type PaymentsHandler struct {
	Pay *payments.Service
}

func NewPaymentsHandler(svc *payments.Service) *PaymentsHandler {
	return &PaymentsHandler{Pay: svc}
}

type unifiedOrderInput struct {
	OrderID string `json:"orderId" binding:"required"`
}

// POST /api/payment/unifiedorder
func (h *PaymentsHandler) UnifiedOrder(c *gin.Context) {
	var in unifiedOrderInput
	if !bindJSON(c, &in) {
		return
	}

	out, err := h.Pay.UnifiedOrder(c.Request.Context(), in.OrderID, c.ClientIP())
	if err != nil {
		middleware.Fail(c, mapPaymentErr(err))
		return
	}

	data := gin.H{
		"orderId":   out.OrderID,
		"paymentId": out.PaymentID,
		"timeStamp": out.Params.TimeStamp,
		"nonceStr":  out.Params.NonceStr,
		"package":   out.Params.Package,
		"signType":  out.Params.SignType,
		"paySign":   out.Params.PaySign,
	}
	if out.MockMode {
		data["mockMode"] = true
	}
	OK(c, data, "创建支付成功")
}

// POST /api/payment/notify — the provider callback. Always answers 200
// with a wire-format ack body; a FAIL body is what makes the provider
// retry, an HTTP error would just hang the notification.
func (h *PaymentsHandler) Notify(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		body = nil
	}

	ack := h.Pay.HandleNotify(c.Request.Context(), body)
	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(ack))
}

// GET /api/payment/query/:orderId
func (h *PaymentsHandler) Query(c *gin.Context) {
	out, err := h.Pay.QueryStatus(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		middleware.Fail(c, mapPaymentErr(err))
		return
	}

	OK(c, out, "查询成功")
}

// POST /api/payment/mock-success/:orderId — test-only simulated success.
func (h *PaymentsHandler) MockSuccess(c *gin.Context) {
	out, err := h.Pay.MockSuccess(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		middleware.Fail(c, mapPaymentErr(err))
		return
	}

	OK(c, out, "模拟支付成功")
}

func mapPaymentErr(err error) error {
	var gerr *wechatpay.GatewayError
	switch {
	case errors.Is(err, orders.ErrNotFound):
		return apperr.NotFoundErr("Order not found.")
	case errors.Is(err, payments.ErrNotFound):
		return apperr.NotFoundErr("Payment record not found.")
	case errors.Is(err, payments.ErrOrderExpired):
		return apperr.ConflictErr("Order has expired.")
	case errors.Is(err, payments.ErrOrderNotPayable):
		return apperr.ConflictErr("Order status does not allow payment.")
	case errors.Is(err, payments.ErrAttemptInFlight):
		return apperr.ConflictErr("A payment attempt is already in progress.")
	case errors.Is(err, payments.ErrAmountMismatch):
		return apperr.ConflictErr("Payment amount does not match the order.")
	case errors.Is(err, payments.ErrMockNotAllowed):
		return apperr.InvalidErr("Mock payment is not available for this order.", nil)
	case errors.As(err, &gerr):
		return apperr.GatewayErr("Payment provider request failed.", err)
	default:
		return apperr.Wrap(err)
	}
}
