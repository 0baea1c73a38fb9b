package fulfillment

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"mingshilin.com/app/internal/modules/orders"
)

// HandlerFunc produces a fulfillment record for a paid order. Handlers
// read the order's detail fields and never mutate payment state; only
// the lifecycle service marks the order fulfilled.
type HandlerFunc func(o orders.Order) orders.FulfillmentRecord

// Dispatcher routes a paid order to its orderType handler.
type Dispatcher struct {
	storageBaseURL string
	handlers       map[string]HandlerFunc
	logger         *slog.Logger
}

func NewDispatcher(storageBaseURL string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		storageBaseURL: storageBaseURL,
		handlers:       map[string]HandlerFunc{},
		logger:         logger,
	}
	d.Register("donation", d.fulfillDonation)
	d.Register("watering", d.fulfillWatering)
	return d
}

func (d *Dispatcher) Register(orderType string, fn HandlerFunc) {
	d.handlers[orderType] = fn
}

// Fulfill returns (record, true) for handled order types. Unknown types
// are logged and skipped: the order stays paid, never crashes the task.
func (d *Dispatcher) Fulfill(o orders.Order) (orders.FulfillmentRecord, bool) {
	fn, ok := d.handlers[o.OrderType]
	if !ok {
		d.logger.Warn("no fulfillment handler for order type",
			"order_id", o.OrderID, "order_type", o.OrderType)
		return orders.FulfillmentRecord{}, false
	}

	rec := fn(o)
	d.logger.Info("order fulfilled",
		"order_id", o.OrderID, "order_type", o.OrderType, "tree_id", rec.TreeID)
	return rec, true
}

// fulfillDonation assigns a tree and issues certificate/QR references.
func (d *Dispatcher) fulfillDonation(o orders.Order) orders.FulfillmentRecord {
	treeID := fmt.Sprintf("TREE_%d", time.Now().UnixMilli())
	return orders.FulfillmentRecord{
		Status:         orders.FulfillmentFulfilled,
		TreeID:         treeID,
		CertificateURL: fmt.Sprintf("%s/certificates/%s.pdf", d.storageBaseURL, o.OrderID),
		QRCodeURL:      fmt.Sprintf("%s/qrcodes/%s.png", d.storageBaseURL, treeID),
	}
}

// fulfillWatering records the service against the tree named in the
// order details.
func (d *Dispatcher) fulfillWatering(o orders.Order) orders.FulfillmentRecord {
	now := time.Now()
	return orders.FulfillmentRecord{
		Status:      orders.FulfillmentFulfilled,
		TreeID:      detailString(o, "treeId"),
		ServiceTime: &now,
	}
}

func detailString(o orders.Order, key string) string {
	if len(o.OrderDetails) == 0 {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(o.OrderDetails, &m); err != nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
