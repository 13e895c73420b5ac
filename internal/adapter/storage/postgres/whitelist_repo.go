package postgres

import (
	"context"
	"errors"
	"fmt"

	"recurring-billing-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// WhitelistRepo implements ports.WhitelistRepository.
type WhitelistRepo struct {
	pool Pool
}

// NewWhitelistRepo creates a new WhitelistRepo.
func NewWhitelistRepo(pool Pool) *WhitelistRepo {
	return &WhitelistRepo{pool: pool}
}

// Set inserts or replaces the oracle route for a currency.
func (r *WhitelistRepo) Set(ctx context.Context, w *domain.WhitelistRoute) error {
	query := `INSERT INTO whitelist_routes (currency, route, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (currency)
		DO UPDATE SET route = EXCLUDED.route, updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query, w.Currency, w.Route, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("set whitelist route: %w", err)
	}
	return nil
}

// Get fetches the oracle route for a currency. Returns nil, nil when the
// currency is not whitelisted.
func (r *WhitelistRepo) Get(ctx context.Context, currency string) (*domain.WhitelistRoute, error) {
	query := `SELECT currency, route, created_at, updated_at
		FROM whitelist_routes WHERE currency = $1`

	w := &domain.WhitelistRoute{}
	err := r.pool.QueryRow(ctx, query, currency).Scan(
		&w.Currency, &w.Route, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get whitelist route: %w", err)
	}
	return w, nil
}

// Delete removes a currency's oracle route. Deleting an absent currency is a
// no-op.
func (r *WhitelistRepo) Delete(ctx context.Context, currency string) error {
	query := `DELETE FROM whitelist_routes WHERE currency = $1`

	_, err := r.pool.Exec(ctx, query, currency)
	if err != nil {
		return fmt.Errorf("delete whitelist route: %w", err)
	}
	return nil
}
