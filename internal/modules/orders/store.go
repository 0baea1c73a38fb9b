package orders

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("order not found")

// Store is the authoritative order ledger. Update serializes all
// mutations for a given order id: fn runs under that key's exclusive
// lock and its error aborts the write, leaving the stored record
// untouched. Orders are never deleted; they remain as audit records.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (Order, error)
	Update(ctx context.Context, id string, fn func(*Order) error) (Order, error)
}
