package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"recurring-billing-engine/internal/core/domain"
	"recurring-billing-engine/internal/core/ports"
	"recurring-billing-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// priceQuoteWindow is the maximum staleness tolerated for an oracle quote.
const priceQuoteWindow = 5 * time.Minute

// BillingServiceImpl implements ports.BillingService.
//
// A settlement is single-debit/multi-credit: the engine prices the root
// service and its whole dependency snapshot up front, executes one debit for
// the grand total, then credits every owner inside the same database
// transaction. The subscription's billing clock advances only when that
// transaction commits, so a subscriber is never charged partially.
type BillingServiceImpl struct {
	serviceRepo    ports.ServiceRepository
	subRepo        ports.SubscriptionRepository
	balanceRepo    ports.BalanceRepository
	whitelistRepo  ports.WhitelistRepository
	settlementRepo ports.SettlementRepository
	transactor     ports.DBTransactor
	oracle         ports.PriceOracle
	clock          ports.Clock
	log            zerolog.Logger
}

// NewBillingService creates a new BillingServiceImpl.
func NewBillingService(
	serviceRepo ports.ServiceRepository,
	subRepo ports.SubscriptionRepository,
	balanceRepo ports.BalanceRepository,
	whitelistRepo ports.WhitelistRepository,
	settlementRepo ports.SettlementRepository,
	transactor ports.DBTransactor,
	oracle ports.PriceOracle,
	clock ports.Clock,
	log zerolog.Logger,
) *BillingServiceImpl {
	return &BillingServiceImpl{
		serviceRepo:    serviceRepo,
		subRepo:        subRepo,
		balanceRepo:    balanceRepo,
		whitelistRepo:  whitelistRepo,
		settlementRepo: settlementRepo,
		transactor:     transactor,
		oracle:         oracle,
		clock:          clock,
		log:            log,
	}
}

// Settle charges one subscription for every billing period elapsed since the
// last settlement. Partial periods round up. A subscription not yet due is a
// documented no-op, not an error.
func (s *BillingServiceImpl) Settle(ctx context.Context, accountID uuid.UUID, serviceID int64) (*ports.SettleResult, error) {
	svc, err := s.serviceRepo.Get(ctx, serviceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get service: %w", err))
	}
	if svc == nil {
		return nil, apperror.ErrServiceNotFound(serviceID)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	sub, err := s.subRepo.GetForUpdate(ctx, dbTx, accountID, serviceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock subscription: %w", err))
	}
	if sub == nil {
		return nil, apperror.ErrNotSubscribed()
	}

	now := s.clock.Now().UTC()
	periods := sub.PeriodsDue(now, svc.BillingPeriod)
	if periods == 0 {
		return &ports.SettleResult{Due: false}, nil
	}

	route, err := s.whitelistRepo.Get(ctx, sub.Currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get whitelist route: %w", err))
	}
	if route == nil {
		return nil, apperror.ErrNotWhitelisted(sub.Currency)
	}

	// Price the root and every distinct dependency independently, each for
	// the same number of periods as the root.
	nodes := svc.FlattenUnique()
	payouts := make([]domain.Payout, 0, len(nodes))
	var totalDebit, totalReference int64
	for _, node := range nodes {
		if node.Price > math.MaxInt64/periods {
			return nil, apperror.ErrAmountOverflow()
		}
		refAmount := node.Price * periods

		converted, err := s.oracle.Quote(ctx, route.Route, refAmount, priceQuoteWindow)
		if err != nil {
			return nil, apperror.ErrOracleQuote(err)
		}
		if converted < 0 {
			return nil, apperror.InternalError(fmt.Errorf("oracle returned negative amount %d", converted))
		}

		payouts = append(payouts, domain.Payout{ServiceID: node.ID, Owner: node.Owner, Amount: converted})
		if totalDebit > math.MaxInt64-converted || totalReference > math.MaxInt64-refAmount {
			return nil, apperror.ErrAmountOverflow()
		}
		totalDebit += converted
		totalReference += refAmount
	}

	bal, err := s.balanceRepo.GetForUpdate(ctx, dbTx, accountID, sub.Currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock balance: %w", err))
	}
	if bal == nil || !bal.CanDebit(totalDebit) {
		return nil, apperror.ErrInsufficientFunds()
	}

	if err := s.balanceRepo.UpdateAmount(ctx, dbTx, accountID, sub.Currency, bal.Amount-totalDebit); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit subscriber: %w", err))
	}

	for _, p := range payouts {
		if err := s.balanceRepo.AddAmount(ctx, dbTx, p.Owner, sub.Currency, p.Amount); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("credit owner of service %d: %w", p.ServiceID, err))
		}
	}

	if err := s.subRepo.UpdateLastSettled(ctx, dbTx, accountID, serviceID, now); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("advance billing clock: %w", err))
	}

	settlement := &domain.Settlement{
		ID:              uuid.New(),
		AccountID:       accountID,
		ServiceID:       serviceID,
		Currency:        sub.Currency,
		Periods:         periods,
		ReferenceAmount: totalReference,
		DebitedAmount:   totalDebit,
		Payouts:         payouts,
		CreatedAt:       now,
	}
	if err := s.settlementRepo.Create(ctx, dbTx, settlement); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record settlement: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("settlement_id", settlement.ID.String()).
		Str("account_id", accountID.String()).
		Int64("service_id", serviceID).
		Int64("periods", periods).
		Int64("debited", totalDebit).
		Int("payouts", len(payouts)).
		Msg("settlement completed")

	return &ports.SettleResult{Due: true, Settlement: settlement}, nil
}

// Collect settles every subscription of a service independently. One
// subscriber's shortfall never blocks the rest; failures are collected into
// the report. The account list is snapshotted up front, so clock updates made
// while iterating cannot skip or double-visit a subscriber.
func (s *BillingServiceImpl) Collect(ctx context.Context, serviceID int64) (*ports.CollectReport, error) {
	svc, err := s.serviceRepo.Get(ctx, serviceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get service: %w", err))
	}
	if svc == nil {
		return nil, apperror.ErrServiceNotFound(serviceID)
	}

	accounts, err := s.subRepo.ListAccountsByService(ctx, serviceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list subscribers: %w", err))
	}

	report := &ports.CollectReport{ServiceID: serviceID}
	for _, accountID := range accounts {
		result, err := s.Settle(ctx, accountID, serviceID)
		if err != nil {
			report.Failures = append(report.Failures, ports.CollectFailure{
				AccountID: accountID,
				Reason:    failureReason(err),
			})
			continue
		}
		if result.Due {
			report.Settled++
		} else {
			report.Skipped++
		}
	}

	s.log.Info().
		Int64("service_id", serviceID).
		Int("settled", report.Settled).
		Int("skipped", report.Skipped).
		Int("failed", len(report.Failures)).
		Msg("collection run finished")

	return report, nil
}

// History returns the most recent settlements charged to an account.
func (s *BillingServiceImpl) History(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Settlement, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	settlements, err := s.settlementRepo.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list settlements: %w", err))
	}
	return settlements, nil
}

// failureReason extracts the stable error code and message for the report,
// hiding wrapped internals.
func failureReason(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return fmt.Sprintf("[%s] %s", appErr.Code, appErr.Message)
	}
	return err.Error()
}
