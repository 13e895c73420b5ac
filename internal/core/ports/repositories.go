package ports

import (
	"context"
	"time"

	"recurring-billing-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
}

// BalanceRepository defines persistence operations for escrow balances.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type BalanceRepository interface {
	Get(ctx context.Context, accountID uuid.UUID, currency string) (*domain.Balance, error)
	// GetForUpdate locks the balance row for the duration of the transaction.
	// Returns nil, nil if no balance row exists yet.
	GetForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string) (*domain.Balance, error)
	Create(ctx context.Context, tx pgx.Tx, balance *domain.Balance) error
	UpdateAmount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string, amount int64) error
	// AddAmount credits the balance in place, creating the row if absent.
	// Used for payout credits where no prior lock is needed.
	AddAmount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string, amount int64) error
}

// ServiceRepository defines persistence operations for registered services.
type ServiceRepository interface {
	// CreateIfAbsent inserts the service unless one with the same id exists.
	// Returns true if the insert happened, false if the id was already taken.
	CreateIfAbsent(ctx context.Context, service *domain.Service) (bool, error)
	Get(ctx context.Context, id int64) (*domain.Service, error)
}

// WhitelistRepository defines persistence for currency oracle routes.
type WhitelistRepository interface {
	Set(ctx context.Context, route *domain.WhitelistRoute) error
	// Get returns nil, nil if the currency has no route.
	Get(ctx context.Context, currency string) (*domain.WhitelistRoute, error)
	Delete(ctx context.Context, currency string) error
}

// SubscriptionRepository defines persistence operations for subscriptions.
type SubscriptionRepository interface {
	// Upsert creates the subscription or replaces an existing one for the
	// same (account, service) pair.
	Upsert(ctx context.Context, sub *domain.Subscription) error
	Get(ctx context.Context, accountID uuid.UUID, serviceID int64) (*domain.Subscription, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, serviceID int64) (*domain.Subscription, error)
	UpdateLastSettled(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, serviceID int64, lastSettled time.Time) error
	Delete(ctx context.Context, accountID uuid.UUID, serviceID int64) error
	// ListAccountsByService snapshots the subscriber account ids for a service.
	// Callers re-read each subscription by key, so rows updated mid-iteration
	// are neither skipped nor visited twice.
	ListAccountsByService(ctx context.Context, serviceID int64) ([]uuid.UUID, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Subscription, error)
}

// SettlementRepository persists the append-only settlement journal.
type SettlementRepository interface {
	Create(ctx context.Context, tx pgx.Tx, settlement *domain.Settlement) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Settlement, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
