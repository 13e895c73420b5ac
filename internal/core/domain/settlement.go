package domain

import (
	"time"

	"github.com/google/uuid"
)

// Payout is one credit issued during a settlement: a service owner's share of
// the charged amount, already converted to the payment currency.
type Payout struct {
	ServiceID int64     `json:"service_id"`
	Owner     uuid.UUID `json:"owner"`
	Amount    int64     `json:"amount"`
}

// Settlement is an append-only journal record of one successful settlement.
// The debited amount always equals the sum of the payout amounts.
type Settlement struct {
	ID              uuid.UUID `json:"id"`
	AccountID       uuid.UUID `json:"account_id"`
	ServiceID       int64     `json:"service_id"`
	Currency        string    `json:"currency"`
	Periods         int64     `json:"periods"`
	ReferenceAmount int64     `json:"reference_amount"` // total charged, in the reference currency
	DebitedAmount   int64     `json:"debited_amount"`   // total charged, in the payment currency
	Payouts         []Payout  `json:"payouts"`
	CreatedAt       time.Time `json:"created_at"`
}
