package domain

import (
	"time"

	"github.com/google/uuid"
)

// Balance is an escrow balance held for an (account, currency) pair.
// Amount is in the currency's smallest unit and is never negative; a zero
// balance is a valid persisted state, not a deleted one.
type Balance struct {
	AccountID uuid.UUID `json:"account_id"`
	Currency  string    `json:"currency"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanDebit returns true if the balance covers the given amount.
func (b *Balance) CanDebit(amount int64) bool {
	return b.Amount >= amount
}
