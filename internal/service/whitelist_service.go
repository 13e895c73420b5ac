package service

import (
	"context"
	"fmt"

	"recurring-billing-engine/internal/core/domain"
	"recurring-billing-engine/internal/core/ports"
	"recurring-billing-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WhitelistServiceImpl implements ports.WhitelistService. Route mutation is
// restricted to the configured administrator account.
type WhitelistServiceImpl struct {
	whitelistRepo ports.WhitelistRepository
	admin         uuid.UUID
	clock         ports.Clock
	log           zerolog.Logger
}

// NewWhitelistService creates a new WhitelistServiceImpl.
func NewWhitelistService(whitelistRepo ports.WhitelistRepository, admin uuid.UUID, clock ports.Clock, log zerolog.Logger) *WhitelistServiceImpl {
	return &WhitelistServiceImpl{whitelistRepo: whitelistRepo, admin: admin, clock: clock, log: log}
}

// SetRoute configures the oracle pair route for a currency, making it
// eligible for subscriptions and collection.
func (s *WhitelistServiceImpl) SetRoute(ctx context.Context, caller uuid.UUID, currency, route string) error {
	if caller != s.admin {
		return apperror.ErrUnauthorized()
	}
	if currency == "" || route == "" {
		return apperror.Validation("currency and route are required")
	}

	now := s.clock.Now().UTC()
	if err := s.whitelistRepo.Set(ctx, &domain.WhitelistRoute{
		Currency:  currency,
		Route:     route,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return apperror.InternalError(fmt.Errorf("set whitelist route: %w", err))
	}

	s.log.Info().Str("currency", currency).Str("route", route).Msg("currency whitelisted")
	return nil
}

// ClearRoute removes a currency's oracle route. Pending subscriptions in that
// currency stop being collectible until a route is configured again.
func (s *WhitelistServiceImpl) ClearRoute(ctx context.Context, caller uuid.UUID, currency string) error {
	if caller != s.admin {
		return apperror.ErrUnauthorized()
	}

	if err := s.whitelistRepo.Delete(ctx, currency); err != nil {
		return apperror.InternalError(fmt.Errorf("clear whitelist route: %w", err))
	}

	s.log.Info().Str("currency", currency).Msg("currency removed from whitelist")
	return nil
}

// GetRoute returns the oracle route for a currency.
func (s *WhitelistServiceImpl) GetRoute(ctx context.Context, currency string) (*domain.WhitelistRoute, error) {
	route, err := s.whitelistRepo.Get(ctx, currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get whitelist route: %w", err))
	}
	if route == nil {
		return nil, apperror.ErrNotWhitelisted(currency)
	}
	return route, nil
}
