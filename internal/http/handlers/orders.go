package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"mingshilin.com/app/internal/http/middleware"
	"mingshilin.com/app/internal/modules/orders"
	"mingshilin.com/app/internal/shared/apperr"
)

type OrdersHandler struct {
	Orders *orders.Service
}

func NewOrdersHandler(svc *orders.Service) *OrdersHandler {
	return &OrdersHandler{Orders: svc}
}

type createOrderInput struct {
	OrderType    string         `json:"orderType" binding:"required,oneof=donation watering"`
	Amount       int            `json:"amount" binding:"required,gt=0"`
	Title        string         `json:"title" binding:"required,max=255"`
	Description  string         `json:"description" binding:"omitempty,max=1024"`
	OrderDetails map[string]any `json:"orderDetails"`
	ContactInfo  map[string]any `json:"contactInfo"`
	UserID       string         `json:"userId" binding:"required,max=128"`
}

// POST /api/orders
func (h *OrdersHandler) Create(c *gin.Context) {
	var in createOrderInput
	if !bindJSON(c, &in) {
		return
	}

	o, err := h.Orders.CreateOrder(c.Request.Context(), orders.CreateOrderInput{
		UserID:       in.UserID,
		OrderType:    in.OrderType,
		Amount:       in.Amount,
		Title:        in.Title,
		Description:  in.Description,
		OrderDetails: in.OrderDetails,
		ContactInfo:  in.ContactInfo,
	})
	if err != nil {
		if errors.Is(err, orders.ErrInvalidAmount) {
			middleware.Fail(c, apperr.InvalidErr("Amount must be a positive integer in minor units.", nil))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	OK(c, o, "订单创建成功")
}

// GET /api/orders/:orderId
func (h *OrdersHandler) Get(c *gin.Context) {
	o, err := h.Orders.Get(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Order not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	OK(c, o, "查询成功")
}
