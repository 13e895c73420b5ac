package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recurring-billing-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// ServiceRepo implements ports.ServiceRepository. The dependency snapshot is
// stored as a JSONB document alongside the row, so reading a service never
// needs a recursive join and later registry changes never leak into it.
type ServiceRepo struct {
	pool Pool
}

// NewServiceRepo creates a new ServiceRepo.
func NewServiceRepo(pool Pool) *ServiceRepo {
	return &ServiceRepo{pool: pool}
}

// CreateIfAbsent inserts the service unless the id is already registered.
// Returns true if this call inserted the row.
func (r *ServiceRepo) CreateIfAbsent(ctx context.Context, s *domain.Service) (bool, error) {
	snapshot, err := json.Marshal(s.DependsOn)
	if err != nil {
		return false, fmt.Errorf("marshal dependency snapshot: %w", err)
	}

	query := `INSERT INTO services (id, billing_period_seconds, price, owner_id, depends_on, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		s.ID, int64(s.BillingPeriod/time.Second), s.Price, s.Owner, snapshot, s.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert service: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get fetches a registered service by id.
func (r *ServiceRepo) Get(ctx context.Context, id int64) (*domain.Service, error) {
	query := `SELECT id, billing_period_seconds, price, owner_id, depends_on, created_at
		FROM services WHERE id = $1`

	s := &domain.Service{}
	var periodSeconds int64
	var snapshot []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &periodSeconds, &s.Price, &s.Owner, &snapshot, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get service: %w", err)
	}

	s.BillingPeriod = time.Duration(periodSeconds) * time.Second
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &s.DependsOn); err != nil {
			return nil, fmt.Errorf("unmarshal dependency snapshot: %w", err)
		}
	}
	return s, nil
}
