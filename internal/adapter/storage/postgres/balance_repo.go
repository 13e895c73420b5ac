package postgres

import (
	"context"
	"errors"
	"fmt"

	"recurring-billing-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BalanceRepo implements ports.BalanceRepository.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

// Get fetches a balance without locking.
func (r *BalanceRepo) Get(ctx context.Context, accountID uuid.UUID, currency string) (*domain.Balance, error) {
	query := `SELECT account_id, currency, amount, created_at, updated_at
		FROM balances WHERE account_id = $1 AND currency = $2`

	b := &domain.Balance{}
	err := r.pool.QueryRow(ctx, query, accountID, currency).Scan(
		&b.AccountID, &b.Currency, &b.Amount, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// GetForUpdate fetches a balance with pessimistic locking.
// This MUST be called within a transaction.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string) (*domain.Balance, error) {
	query := `SELECT account_id, currency, amount, created_at, updated_at
		FROM balances WHERE account_id = $1 AND currency = $2 FOR UPDATE`

	b := &domain.Balance{}
	err := tx.QueryRow(ctx, query, accountID, currency).Scan(
		&b.AccountID, &b.Currency, &b.Amount, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance for update: %w", err)
	}
	return b, nil
}

// Create inserts a balance row within a transaction.
func (r *BalanceRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Balance) error {
	query := `INSERT INTO balances (account_id, currency, amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query, b.AccountID, b.Currency, b.Amount, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert balance: %w", err)
	}
	return nil
}

// UpdateAmount sets a balance to an absolute amount within a transaction.
func (r *BalanceRepo) UpdateAmount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string, amount int64) error {
	query := `UPDATE balances SET amount = $1, updated_at = NOW()
		WHERE account_id = $2 AND currency = $3`

	tag, err := tx.Exec(ctx, query, amount, accountID, currency)
	if err != nil {
		return fmt.Errorf("update balance amount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("balance not found: %s/%s", accountID, currency)
	}
	return nil
}

// AddAmount credits a balance in place, creating the row if absent. Payout
// credits go through here, so owners receive funds without prior setup.
func (r *BalanceRepo) AddAmount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string, amount int64) error {
	query := `INSERT INTO balances (account_id, currency, amount, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (account_id, currency)
		DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = NOW()`

	_, err := tx.Exec(ctx, query, accountID, currency, amount)
	if err != nil {
		return fmt.Errorf("add balance amount: %w", err)
	}
	return nil
}
