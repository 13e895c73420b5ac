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

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	balanceRepo ports.BalanceRepository
	transactor  ports.DBTransactor
	transferor  ports.FundTransferor
	clock       ports.Clock
	log         zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	balanceRepo ports.BalanceRepository,
	transactor ports.DBTransactor,
	transferor ports.FundTransferor,
	clock ports.Clock,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		balanceRepo: balanceRepo,
		transactor:  transactor,
		transferor:  transferor,
		clock:       clock,
		log:         log,
	}
}

// Deposit credits an escrow balance. Deposits are accepted for any currency,
// whitelisted or not, so funds are never locked behind a configuration race.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, accountID uuid.UUID, currency string, amount int64) (*domain.Balance, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := s.clock.Now().UTC()

	bal, err := s.balanceRepo.GetForUpdate(ctx, dbTx, accountID, currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock balance: %w", err))
	}
	if bal == nil {
		bal = &domain.Balance{
			AccountID: accountID,
			Currency:  currency,
			Amount:    0,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.balanceRepo.Create(ctx, dbTx, bal); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create balance: %w", err))
		}
	}

	newAmount := bal.Amount + amount
	if newAmount < bal.Amount {
		return nil, apperror.ErrAmountOverflow()
	}

	if err := s.balanceRepo.UpdateAmount(ctx, dbTx, accountID, currency, newAmount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	bal.Amount = newAmount
	bal.UpdatedAt = now

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("currency", currency).
		Int64("amount", amount).
		Int64("balance", newAmount).
		Msg("deposit credited")

	return bal, nil
}

// Withdraw debits an escrow balance and dispatches an external transfer.
// The withdrawal is all-or-nothing: a shortfall leaves the balance untouched.
func (s *LedgerServiceImpl) Withdraw(ctx context.Context, accountID uuid.UUID, currency string, amount int64) (*domain.Balance, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	bal, err := s.balanceRepo.GetForUpdate(ctx, dbTx, accountID, currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock balance: %w", err))
	}
	if bal == nil || !bal.CanDebit(amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	newAmount := bal.Amount - amount
	if err := s.balanceRepo.UpdateAmount(ctx, dbTx, accountID, currency, newAmount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	bal.Amount = newAmount
	bal.UpdatedAt = s.clock.Now().UTC()

	// The debit committed, so the funds are escrowed and the outbound
	// transfer cannot be short. A dispatch failure is logged, not surfaced.
	if err := s.transferor.TransferOut(ctx, accountID, currency, amount); err != nil {
		s.log.Error().Err(err).
			Str("account_id", accountID.String()).
			Str("currency", currency).
			Int64("amount", amount).
			Msg("transfer-out dispatch failed")
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("currency", currency).
		Int64("amount", amount).
		Int64("balance", newAmount).
		Msg("withdrawal processed")

	return bal, nil
}

// Balance returns the escrow balance for an (account, currency) pair.
// Accounts exist implicitly, so an unknown pair reads as a zero balance.
func (s *LedgerServiceImpl) Balance(ctx context.Context, accountID uuid.UUID, currency string) (*domain.Balance, error) {
	bal, err := s.balanceRepo.Get(ctx, accountID, currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get balance: %w", err))
	}
	if bal == nil {
		now := s.clock.Now().UTC()
		return &domain.Balance{
			AccountID: accountID,
			Currency:  currency,
			Amount:    0,
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	}
	return bal, nil
}
