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

// SubscriptionServiceImpl implements ports.SubscriptionService.
type SubscriptionServiceImpl struct {
	subRepo       ports.SubscriptionRepository
	serviceRepo   ports.ServiceRepository
	whitelistRepo ports.WhitelistRepository
	clock         ports.Clock
	log           zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionServiceImpl.
func NewSubscriptionService(
	subRepo ports.SubscriptionRepository,
	serviceRepo ports.ServiceRepository,
	whitelistRepo ports.WhitelistRepository,
	clock ports.Clock,
	log zerolog.Logger,
) *SubscriptionServiceImpl {
	return &SubscriptionServiceImpl{
		subRepo:       subRepo,
		serviceRepo:   serviceRepo,
		whitelistRepo: whitelistRepo,
		clock:         clock,
		log:           log,
	}
}

// Subscribe creates a subscription paying in the given currency. The billing
// clock starts now and no funds move until the first collection, so the
// first period is charged at the next settlement, not at subscribe time.
// Subscribing again to the same service resets the clock and currency.
func (s *SubscriptionServiceImpl) Subscribe(ctx context.Context, accountID uuid.UUID, serviceID int64, currency string) (*domain.Subscription, error) {
	svc, err := s.serviceRepo.Get(ctx, serviceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get service: %w", err))
	}
	if svc == nil {
		return nil, apperror.ErrServiceNotFound(serviceID)
	}

	route, err := s.whitelistRepo.Get(ctx, currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get whitelist route: %w", err))
	}
	if route == nil {
		return nil, apperror.ErrNotWhitelisted(currency)
	}

	now := s.clock.Now().UTC()
	sub := &domain.Subscription{
		AccountID:   accountID,
		ServiceID:   serviceID,
		Currency:    currency,
		LastSettled: now,
		CreatedAt:   now,
	}

	if err := s.subRepo.Upsert(ctx, sub); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("upsert subscription: %w", err))
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Int64("service_id", serviceID).
		Str("currency", currency).
		Msg("subscribed")

	return sub, nil
}

// Unsubscribe removes a subscription. No refund is computed.
func (s *SubscriptionServiceImpl) Unsubscribe(ctx context.Context, accountID uuid.UUID, serviceID int64) error {
	sub, err := s.subRepo.Get(ctx, accountID, serviceID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get subscription: %w", err))
	}
	if sub == nil {
		return apperror.ErrNotSubscribed()
	}

	if err := s.subRepo.Delete(ctx, accountID, serviceID); err != nil {
		return apperror.InternalError(fmt.Errorf("delete subscription: %w", err))
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Int64("service_id", serviceID).
		Msg("unsubscribed")

	return nil
}

// List returns all subscriptions held by an account.
func (s *SubscriptionServiceImpl) List(ctx context.Context, accountID uuid.UUID) ([]domain.Subscription, error) {
	subs, err := s.subRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list subscriptions: %w", err))
	}
	return subs, nil
}
