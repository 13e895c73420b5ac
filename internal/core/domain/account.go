package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a fund holder: a subscriber, a service owner, or both.
// Escrow balances and subscriptions are keyed by the account ID.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}
