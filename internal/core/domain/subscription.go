package domain

import (
	"time"

	"github.com/google/uuid"
)

// Subscription links an account to a service it pays for. LastSettled is the
// billing clock: it only ever advances, and only when a settlement charged
// every due period in full.
type Subscription struct {
	AccountID   uuid.UUID `json:"account_id"`
	ServiceID   int64     `json:"service_id"`
	Currency    string    `json:"currency"` // currency the subscriber deposited and pays in
	LastSettled time.Time `json:"last_settled"`
	CreatedAt   time.Time `json:"created_at"`
}

// PeriodsDue returns how many billing periods have to be paid for at the given
// time. Partial periods round up, so skipping collection calls never yields a
// free partial period. Returns 0 while the subscription is not yet due.
func (s *Subscription) PeriodsDue(now time.Time, period time.Duration) int64 {
	elapsed := now.Sub(s.LastSettled)
	if elapsed < period {
		return 0
	}
	due := int64(elapsed / period)
	if elapsed%period != 0 {
		due++
	}
	return due
}
