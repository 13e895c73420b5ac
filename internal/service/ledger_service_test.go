package service

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"recurring-billing-engine/internal/core/domain"
	"recurring-billing-engine/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type ledgerTestDeps struct {
	svc         *LedgerServiceImpl
	balanceRepo *mocks.MockBalanceRepository
	transactor  *mocks.MockDBTransactor
	transferor  *mocks.MockFundTransferor
	clock       *mocks.MockClock
	ctrl        *gomock.Controller
}

func setupLedgerService(t *testing.T) *ledgerTestDeps {
	ctrl := gomock.NewController(t)
	d := &ledgerTestDeps{
		balanceRepo: mocks.NewMockBalanceRepository(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		transferor:  mocks.NewMockFundTransferor(ctrl),
		clock:       mocks.NewMockClock(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewLedgerService(d.balanceRepo, d.transactor, d.transferor, d.clock, zerolog.Nop())
	return d
}

func TestLedgerService_Deposit_ExistingBalance(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.clock.EXPECT().Now().Return(now)
	d.balanceRepo.EXPECT().GetForUpdate(ctx, tx, accountID, "USDC").Return(&domain.Balance{
		AccountID: accountID, Currency: "USDC", Amount: 250,
	}, nil)
	d.balanceRepo.EXPECT().UpdateAmount(ctx, tx, accountID, "USDC", int64(1250)).Return(nil)

	bal, err := d.svc.Deposit(ctx, accountID, "USDC", 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), bal.Amount)
}

func TestLedgerService_Deposit_CreatesBalance(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.clock.EXPECT().Now().Return(now)
	d.balanceRepo.EXPECT().GetForUpdate(ctx, tx, accountID, "WEGLD").Return(nil, nil)
	d.balanceRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, bal *domain.Balance) error {
			assert.Equal(t, int64(0), bal.Amount)
			assert.Equal(t, "WEGLD", bal.Currency)
			return nil
		})
	d.balanceRepo.EXPECT().UpdateAmount(ctx, tx, accountID, "WEGLD", int64(500)).Return(nil)

	bal, err := d.svc.Deposit(ctx, accountID, "WEGLD", 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), bal.Amount)
}

func TestLedgerService_Deposit_InvalidAmount(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	for _, amount := range []int64{0, -100} {
		bal, err := d.svc.Deposit(context.Background(), uuid.New(), "USDC", amount)
		assert.Nil(t, bal)
		assertAppError(t, err, "LED_002")
	}
}

func TestLedgerService_Deposit_Overflow(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.clock.EXPECT().Now().Return(time.Now())
	d.balanceRepo.EXPECT().GetForUpdate(ctx, tx, accountID, "USDC").Return(&domain.Balance{
		AccountID: accountID, Currency: "USDC", Amount: math.MaxInt64 - 5,
	}, nil)

	bal, err := d.svc.Deposit(ctx, accountID, "USDC", 10)
	assert.Nil(t, bal)
	assertAppError(t, err, "LED_003")
}

func TestLedgerService_Withdraw_Success(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.balanceRepo.EXPECT().GetForUpdate(ctx, tx, accountID, "USDC").Return(&domain.Balance{
		AccountID: accountID, Currency: "USDC", Amount: 800,
	}, nil)
	d.balanceRepo.EXPECT().UpdateAmount(ctx, tx, accountID, "USDC", int64(300)).Return(nil)
	d.clock.EXPECT().Now().Return(now)
	d.transferor.EXPECT().TransferOut(ctx, accountID, "USDC", int64(500)).Return(nil)

	bal, err := d.svc.Withdraw(ctx, accountID, "USDC", 500)
	require.NoError(t, err)
	assert.Equal(t, int64(300), bal.Amount)
}

func TestLedgerService_Withdraw_InsufficientFunds(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.balanceRepo.EXPECT().GetForUpdate(ctx, tx, accountID, "USDC").Return(&domain.Balance{
		AccountID: accountID, Currency: "USDC", Amount: 200,
	}, nil)
	// No UpdateAmount, no TransferOut: the balance stays put.

	bal, err := d.svc.Withdraw(ctx, accountID, "USDC", 500)
	assert.Nil(t, bal)
	assertAppError(t, err, "LED_001")
}

func TestLedgerService_Withdraw_NoBalance(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.balanceRepo.EXPECT().GetForUpdate(ctx, tx, accountID, "DOGE").Return(nil, nil)

	bal, err := d.svc.Withdraw(ctx, accountID, "DOGE", 1)
	assert.Nil(t, bal)
	assertAppError(t, err, "LED_001")
}

func TestLedgerService_Withdraw_TransferDispatchFailureIsNotSurfaced(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.balanceRepo.EXPECT().GetForUpdate(ctx, tx, accountID, "USDC").Return(&domain.Balance{
		AccountID: accountID, Currency: "USDC", Amount: 800,
	}, nil)
	d.balanceRepo.EXPECT().UpdateAmount(ctx, tx, accountID, "USDC", int64(700)).Return(nil)
	d.clock.EXPECT().Now().Return(time.Now())
	d.transferor.EXPECT().TransferOut(ctx, accountID, "USDC", int64(100)).Return(fmt.Errorf("bridge down"))

	bal, err := d.svc.Withdraw(ctx, accountID, "USDC", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(700), bal.Amount)
}

func TestLedgerService_Balance_ZeroWhenMissing(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.balanceRepo.EXPECT().Get(ctx, accountID, "USDC").Return(nil, nil)
	d.clock.EXPECT().Now().Return(time.Now())

	bal, err := d.svc.Balance(ctx, accountID, "USDC")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.Amount)
	assert.Equal(t, "USDC", bal.Currency)
}
