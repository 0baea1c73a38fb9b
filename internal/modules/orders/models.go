package orders

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusFulfilled = "fulfilled"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// OrderTTL is how long a pending order stays payable.
const OrderTTL = 30 * time.Minute

type Order struct {
	OrderID   string `gorm:"type:varchar(64);primaryKey" json:"orderId"`
	UserID    string `gorm:"type:varchar(128);not null;index:ix_orders_user_id" json:"userId"`
	OrderType string `gorm:"type:varchar(32);not null" json:"orderType"`
	Status    string `gorm:"type:varchar(32);not null" json:"status"`

	Amount   int    `gorm:"not null" json:"amount"` // minor units
	Currency string `gorm:"type:char(3);not null" json:"currency"`

	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Description string `gorm:"type:varchar(1024)" json:"description"`

	OrderDetails datatypes.JSON `gorm:"type:json" json:"orderDetails"`
	ContactInfo  datatypes.JSON `gorm:"type:json" json:"contactInfo"`

	CreatedAt time.Time  `gorm:"type:datetime(3);not null" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"type:datetime(3);not null" json:"updatedAt"`
	ExpiredAt time.Time  `gorm:"type:datetime(3);not null" json:"expiredAt"`
	PaidAt    *time.Time `gorm:"type:datetime(3)" json:"paidAt"`

	PaymentID     *string `gorm:"type:varchar(64)" json:"paymentId"`
	TransactionID *string `gorm:"type:varchar(64)" json:"transactionId"`

	Fulfillment *FulfillmentRecord `gorm:"serializer:json" json:"fulfillment"`
}

func (Order) TableName() string { return "orders" }

// Terminal statuses are immutable: no transition may leave them.
func (o *Order) Terminal() bool {
	switch o.Status {
	case StatusFulfilled, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

func (o *Order) Expired(now time.Time) bool {
	return o.Status == StatusPending && now.After(o.ExpiredAt)
}

const (
	FulfillmentPending   = "pending"
	FulfillmentFulfilled = "fulfilled"
)

// FulfillmentRecord captures the post-payment side effect per orderType.
type FulfillmentRecord struct {
	Status         string     `json:"status"`
	TreeID         string     `json:"treeId,omitempty"`
	CertificateURL string     `json:"certificateUrl,omitempty"`
	QRCodeURL      string     `json:"qrCodeUrl,omitempty"`
	ServiceTime    *time.Time `json:"serviceTime,omitempty"`
}
