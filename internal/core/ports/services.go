package ports

import (
	"context"
	"time"

	"recurring-billing-engine/internal/core/domain"

	"github.com/google/uuid"
)

// --- Collaborator Ports (host environment) ---

// Clock supplies the current time. Injected so settlements are deterministic
// under test.
type Clock interface {
	Now() time.Time
}

// PriceOracle converts an amount quoted in the reference currency into the
// target currency identified by its whitelist route. The window bounds how
// stale a quote the oracle may answer with.
type PriceOracle interface {
	Quote(ctx context.Context, route string, referenceAmount int64, window time.Duration) (int64, error)
}

// FundTransferor moves escrowed funds out to an account's external wallet.
// Transfers are only invoked after the corresponding debit committed, so the
// funds are guaranteed available.
type FundTransferor interface {
	TransferOut(ctx context.Context, accountID uuid.UUID, currency string, amount int64) error
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(accountID uuid.UUID, isAdmin bool) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AccountID uuid.UUID
	IsAdmin   bool
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// --- Service Ports (Business Logic) ---

// LedgerService manages escrow balances.
type LedgerService interface {
	Deposit(ctx context.Context, accountID uuid.UUID, currency string, amount int64) (*domain.Balance, error)
	Withdraw(ctx context.Context, accountID uuid.UUID, currency string, amount int64) (*domain.Balance, error)
	Balance(ctx context.Context, accountID uuid.UUID, currency string) (*domain.Balance, error)
}

// RegistryService manages the immutable service registry.
type RegistryService interface {
	// Register inserts the service if its id is free, snapshotting the
	// dependency records by value. Re-registering an existing id is a no-op
	// that returns the original record.
	Register(ctx context.Context, req RegisterServiceRequest) (*domain.Service, error)
	Get(ctx context.Context, id int64) (*domain.Service, error)
}

// RegisterServiceRequest holds validated input for service registration.
type RegisterServiceRequest struct {
	ID            int64
	BillingPeriod time.Duration
	Price         int64
	Owner         uuid.UUID // always the authenticated caller
	DependsOn     []int64   // ids of already-registered services
}

// WhitelistService manages currency oracle routes.
type WhitelistService interface {
	SetRoute(ctx context.Context, caller uuid.UUID, currency, route string) error
	ClearRoute(ctx context.Context, caller uuid.UUID, currency string) error
	GetRoute(ctx context.Context, currency string) (*domain.WhitelistRoute, error)
}

// SubscriptionService manages subscription lifecycle.
type SubscriptionService interface {
	Subscribe(ctx context.Context, accountID uuid.UUID, serviceID int64, currency string) (*domain.Subscription, error)
	Unsubscribe(ctx context.Context, accountID uuid.UUID, serviceID int64) error
	List(ctx context.Context, accountID uuid.UUID) ([]domain.Subscription, error)
}

// BillingService runs settlements.
type BillingService interface {
	// Settle charges one subscription for every elapsed billing period and
	// distributes the payment across the service's dependency snapshot.
	// A subscription that is not yet due returns a result with Due=false
	// and no error.
	Settle(ctx context.Context, accountID uuid.UUID, serviceID int64) (*SettleResult, error)
	// Collect settles every subscription of a service. Per-subscriber
	// failures are reported, not propagated.
	Collect(ctx context.Context, serviceID int64) (*CollectReport, error)
	// History returns the most recent settlements charged to an account.
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Settlement, error)
}

// SettleResult describes the outcome of a single settlement.
type SettleResult struct {
	Due        bool               `json:"due"`
	Settlement *domain.Settlement `json:"settlement,omitempty"`
}

// CollectFailure records one subscriber whose settlement failed during Collect.
type CollectFailure struct {
	AccountID uuid.UUID `json:"account_id"`
	Reason    string    `json:"reason"`
}

// CollectReport aggregates one Collect run over a service's subscribers.
type CollectReport struct {
	ServiceID int64            `json:"service_id"`
	Settled   int              `json:"settled"`
	Skipped   int              `json:"skipped"` // not yet due
	Failures  []CollectFailure `json:"failures,omitempty"`
}

// AuthService defines account signup and login.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*domain.Account, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}
