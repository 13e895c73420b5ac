package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recurring-billing-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SubscriptionRepo implements ports.SubscriptionRepository.
type SubscriptionRepo struct {
	pool Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepo.
func NewSubscriptionRepo(pool Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

// Upsert creates the subscription or replaces an existing one for the same
// (account, service) pair, resetting its billing clock and currency.
func (r *SubscriptionRepo) Upsert(ctx context.Context, s *domain.Subscription) error {
	query := `INSERT INTO subscriptions (account_id, service_id, currency, last_settled, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, service_id)
		DO UPDATE SET currency = EXCLUDED.currency, last_settled = EXCLUDED.last_settled`

	_, err := r.pool.Exec(ctx, query, s.AccountID, s.ServiceID, s.Currency, s.LastSettled, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// Get fetches a subscription without locking.
func (r *SubscriptionRepo) Get(ctx context.Context, accountID uuid.UUID, serviceID int64) (*domain.Subscription, error) {
	query := `SELECT account_id, service_id, currency, last_settled, created_at
		FROM subscriptions WHERE account_id = $1 AND service_id = $2`

	s := &domain.Subscription{}
	err := r.pool.QueryRow(ctx, query, accountID, serviceID).Scan(
		&s.AccountID, &s.ServiceID, &s.Currency, &s.LastSettled, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return s, nil
}

// GetForUpdate fetches a subscription with pessimistic locking.
// This MUST be called within a transaction.
func (r *SubscriptionRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, serviceID int64) (*domain.Subscription, error) {
	query := `SELECT account_id, service_id, currency, last_settled, created_at
		FROM subscriptions WHERE account_id = $1 AND service_id = $2 FOR UPDATE`

	s := &domain.Subscription{}
	err := tx.QueryRow(ctx, query, accountID, serviceID).Scan(
		&s.AccountID, &s.ServiceID, &s.Currency, &s.LastSettled, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription for update: %w", err)
	}
	return s, nil
}

// UpdateLastSettled advances the billing clock within a transaction.
func (r *SubscriptionRepo) UpdateLastSettled(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, serviceID int64, lastSettled time.Time) error {
	query := `UPDATE subscriptions SET last_settled = $1
		WHERE account_id = $2 AND service_id = $3`

	tag, err := tx.Exec(ctx, query, lastSettled, accountID, serviceID)
	if err != nil {
		return fmt.Errorf("update last settled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription not found: %s/%d", accountID, serviceID)
	}
	return nil
}

// Delete removes a subscription.
func (r *SubscriptionRepo) Delete(ctx context.Context, accountID uuid.UUID, serviceID int64) error {
	query := `DELETE FROM subscriptions WHERE account_id = $1 AND service_id = $2`

	_, err := r.pool.Exec(ctx, query, accountID, serviceID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// ListAccountsByService snapshots the subscriber account ids for a service.
func (r *SubscriptionRepo) ListAccountsByService(ctx context.Context, serviceID int64) ([]uuid.UUID, error) {
	query := `SELECT account_id FROM subscriptions WHERE service_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, serviceID)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var accounts []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		accounts = append(accounts, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return accounts, nil
}

// ListByAccount returns all subscriptions held by an account.
func (r *SubscriptionRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Subscription, error) {
	query := `SELECT account_id, service_id, currency, last_settled, created_at
		FROM subscriptions WHERE account_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		if err := rows.Scan(&s.AccountID, &s.ServiceID, &s.Currency, &s.LastSettled, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, nil
}
