package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"recurring-billing-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SettlementRepo implements ports.SettlementRepository. Settlements are an
// append-only journal; rows are never updated or deleted.
type SettlementRepo struct {
	pool Pool
}

// NewSettlementRepo creates a new SettlementRepo.
func NewSettlementRepo(pool Pool) *SettlementRepo {
	return &SettlementRepo{pool: pool}
}

// Create appends a settlement record within the settling transaction, so the
// journal entry commits atomically with the balance moves it describes.
func (r *SettlementRepo) Create(ctx context.Context, tx pgx.Tx, s *domain.Settlement) error {
	payouts, err := json.Marshal(s.Payouts)
	if err != nil {
		return fmt.Errorf("marshal payouts: %w", err)
	}

	query := `INSERT INTO settlements (id, account_id, service_id, currency, periods, reference_amount, debited_amount, payouts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = tx.Exec(ctx, query,
		s.ID, s.AccountID, s.ServiceID, s.Currency, s.Periods,
		s.ReferenceAmount, s.DebitedAmount, payouts, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

// ListByAccount returns the most recent settlements charged to an account.
func (r *SettlementRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Settlement, error) {
	query := `SELECT id, account_id, service_id, currency, periods, reference_amount, debited_amount, payouts, created_at
		FROM settlements WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []domain.Settlement
	for rows.Next() {
		var s domain.Settlement
		var payouts []byte
		if err := rows.Scan(
			&s.ID, &s.AccountID, &s.ServiceID, &s.Currency, &s.Periods,
			&s.ReferenceAmount, &s.DebitedAmount, &payouts, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		if len(payouts) > 0 {
			if err := json.Unmarshal(payouts, &s.Payouts); err != nil {
				return nil, fmt.Errorf("unmarshal payouts: %w", err)
			}
		}
		settlements = append(settlements, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlements: %w", err)
	}
	return settlements, nil
}
