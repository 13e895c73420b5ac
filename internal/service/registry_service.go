package service

import (
	"context"
	"fmt"

	"recurring-billing-engine/internal/core/domain"
	"recurring-billing-engine/internal/core/ports"
	"recurring-billing-engine/pkg/apperror"

	"github.com/rs/zerolog"
)

// RegistryServiceImpl implements ports.RegistryService.
type RegistryServiceImpl struct {
	serviceRepo ports.ServiceRepository
	clock       ports.Clock
	log         zerolog.Logger
}

// NewRegistryService creates a new RegistryServiceImpl.
func NewRegistryService(serviceRepo ports.ServiceRepository, clock ports.Clock, log zerolog.Logger) *RegistryServiceImpl {
	return &RegistryServiceImpl{serviceRepo: serviceRepo, clock: clock, log: log}
}

// Register inserts a service with its dependency snapshot taken by value.
// The owner is always the authenticated caller, never a caller-supplied field.
// If the id is already registered the call is an idempotent no-op returning
// the original record, so a second registrant cannot hijack an id.
func (s *RegistryServiceImpl) Register(ctx context.Context, req ports.RegisterServiceRequest) (*domain.Service, error) {
	if req.ID <= 0 || req.BillingPeriod <= 0 || req.Price <= 0 {
		return nil, apperror.ErrInvalidService()
	}

	// Snapshot every dependency as it exists right now. The parent owns the
	// copied subtree, so later registry growth cannot change its fee split.
	snapshot := make([]domain.ServiceNode, 0, len(req.DependsOn))
	for _, depID := range req.DependsOn {
		dep, err := s.serviceRepo.Get(ctx, depID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("resolve dependency %d: %w", depID, err))
		}
		if dep == nil {
			return nil, apperror.ErrServiceNotFound(depID)
		}
		snapshot = append(snapshot, dep.Root())
	}

	svc := &domain.Service{
		ID:            req.ID,
		BillingPeriod: req.BillingPeriod,
		Price:         req.Price,
		Owner:         req.Owner,
		DependsOn:     snapshot,
		CreatedAt:     s.clock.Now().UTC(),
	}

	inserted, err := s.serviceRepo.CreateIfAbsent(ctx, svc)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("register service: %w", err))
	}
	if !inserted {
		existing, err := s.serviceRepo.Get(ctx, req.ID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get existing service: %w", err))
		}
		if existing == nil {
			return nil, apperror.InternalError(fmt.Errorf("service %d vanished after conflicting insert", req.ID))
		}
		s.log.Debug().
			Int64("service_id", req.ID).
			Msg("service id already registered, keeping original record")
		return existing, nil
	}

	s.log.Info().
		Int64("service_id", svc.ID).
		Str("owner", svc.Owner.String()).
		Int64("price", svc.Price).
		Dur("billing_period", svc.BillingPeriod).
		Int("dependencies", len(svc.DependsOn)).
		Msg("service registered")

	return svc, nil
}

// Get fetches a registered service by id.
func (s *RegistryServiceImpl) Get(ctx context.Context, id int64) (*domain.Service, error) {
	svc, err := s.serviceRepo.Get(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get service: %w", err))
	}
	if svc == nil {
		return nil, apperror.ErrServiceNotFound(id)
	}
	return svc, nil
}
