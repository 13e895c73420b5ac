package domain

import "time"

// WhitelistRoute maps a currency to the oracle pair route used to price it.
// A currency without a route cannot be subscribed with or collected against.
type WhitelistRoute struct {
	Currency  string    `json:"currency"`
	Route     string    `json:"route"` // oracle pair address
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
