package wechatpay

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

const nonceChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NonceStr returns a random alphanumeric string of length n.
func NonceStr(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing is effectively fatal elsewhere; fall back
		// to a timestamp so signing still produces something unique-ish
		return fmt.Sprintf("%0*d", n, time.Now().UnixNano())[:n]
	}
	var sb strings.Builder
	sb.Grow(n)
	for _, c := range b {
		sb.WriteByte(nonceChars[int(c)%len(nonceChars)])
	}
	return sb.String()
}

// NewOrderID returns an order id like ORDER_1723456789000_A1B2C3D4E.
func NewOrderID() string { return newPrefixedID("ORDER") }

// NewPaymentID returns a payment id like PAY_1723456789000_A1B2C3D4E.
func NewPaymentID() string { return newPrefixedID("PAY") }

func newPrefixedID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), strings.ToUpper(NonceStr(9)))
}
