package payments

import "time"

const (
	StatusInitiated = "initiated" // reserved, provider handshake not finished
	StatusPending   = "pending"   // handshake done, awaiting payer
	StatusSuccess   = "success"
	StatusFailed    = "failed"
)

const (
	VerifyVerified = "verified"
	VerifyRejected = "rejected"
)

// Payment is a single provider-side payment attempt tied to one order.
// Amount and currency are copied from the owning order at creation and
// must match byte-for-byte at verification time.
type Payment struct {
	PaymentID string `gorm:"type:varchar(64);primaryKey" json:"paymentId"`
	OrderID   string `gorm:"type:varchar(64);not null;index:ix_payments_order_id" json:"orderId"`
	UserID    string `gorm:"type:varchar(128);not null" json:"userId"`
	Method    string `gorm:"type:varchar(32);not null" json:"paymentMethod"`

	Amount   int    `gorm:"not null" json:"amount"`
	Currency string `gorm:"type:char(3);not null" json:"currency"`
	Status   string `gorm:"type:varchar(32);not null" json:"status"`

	// provider handshake data
	AppID         string  `gorm:"type:varchar(64)" json:"appId"`
	MchID         string  `gorm:"type:varchar(64)" json:"mchId"`
	NonceStr      string  `gorm:"type:varchar(64)" json:"nonceStr"`
	TimeStamp     string  `gorm:"type:varchar(16)" json:"timeStamp"`
	PrepayID      string  `gorm:"type:varchar(128)" json:"prepayId"`
	TransactionID *string `gorm:"type:varchar(64)" json:"transactionId"`
	SignType      string  `gorm:"type:varchar(16)" json:"signType"`
	PaySign       string  `gorm:"type:varchar(64)" json:"paySign"`
	MockMode      bool    `gorm:"not null;default:false" json:"mockMode"`

	CreatedAt    time.Time  `gorm:"type:datetime(3);not null" json:"createdAt"`
	PaidAt       *time.Time `gorm:"type:datetime(3)" json:"paidAt"`
	NotifiedAt   *time.Time `gorm:"type:datetime(3)" json:"notifiedAt"`
	VerifyStatus *string    `gorm:"type:varchar(32)" json:"verifyStatus"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) Terminal() bool {
	return p.Status == StatusSuccess || p.Status == StatusFailed
}
