package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"recurring-billing-engine/internal/core/domain"
	"recurring-billing-engine/internal/core/ports/mocks"
	"recurring-billing-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type billingTestDeps struct {
	svc            *BillingServiceImpl
	serviceRepo    *mocks.MockServiceRepository
	subRepo        *mocks.MockSubscriptionRepository
	balanceRepo    *mocks.MockBalanceRepository
	whitelistRepo  *mocks.MockWhitelistRepository
	settlementRepo *mocks.MockSettlementRepository
	transactor     *mocks.MockDBTransactor
	oracle         *mocks.MockPriceOracle
	clock          *mocks.MockClock
	ctrl           *gomock.Controller
}

func setupBillingService(t *testing.T) *billingTestDeps {
	ctrl := gomock.NewController(t)
	d := &billingTestDeps{
		serviceRepo:    mocks.NewMockServiceRepository(ctrl),
		subRepo:        mocks.NewMockSubscriptionRepository(ctrl),
		balanceRepo:    mocks.NewMockBalanceRepository(ctrl),
		whitelistRepo:  mocks.NewMockWhitelistRepository(ctrl),
		settlementRepo: mocks.NewMockSettlementRepository(ctrl),
		transactor:     mocks.NewMockDBTransactor(ctrl),
		oracle:         mocks.NewMockPriceOracle(ctrl),
		clock:          mocks.NewMockClock(ctrl),
		ctrl:           ctrl,
	}
	d.svc = NewBillingService(
		d.serviceRepo, d.subRepo, d.balanceRepo, d.whitelistRepo,
		d.settlementRepo, d.transactor, d.oracle, d.clock, zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected *apperror.AppError, got %T: %v", err, err)
	assert.Equal(t, expectedCode, appErr.Code)
}

// ==================== Settle Tests ====================

func TestBillingService_Settle_SingleService(t *testing.T) {
	d := setupBillingService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	ownerID := uuid.New()
	tx := &mockTx{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	svc := &domain.Service{ID: 1, BillingPeriod: 86400 * time.Second, Price: 100, Owner: ownerID}
	// 200000s elapsed = 2.31 periods -> charge 3
	sub := &domain.Subscription{
		AccountID:   accountID,
		ServiceID:   1,
		Currency:    "USDC",
		LastSettled: now.Add(-200000 * time.Second),
	}

	d.serviceRepo.EXPECT().Get(ctx, int64(1)).Return(svc, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.subRepo.EXPECT().GetForUpdate(ctx, tx, accountID, int64(1)).Return(sub, nil)
	d.clock.EXPECT().Now().Return(now)
	d.whitelistRepo.EXPECT().Get(ctx, "USDC").Return(&domain.WhitelistRoute{Currency: "USDC", Route: "pair-usdc"}, nil)
	// 3 periods x 100 reference units, converted 1:1
	d.oracle.EXPECT().Quote(ctx, "pair-usdc", int64(300), 5*time.Minute).Return(int64(300), nil)
	d.balanceRepo.EXPECT().GetForUpdate(ctx, tx, accountID, "USDC").Return(&domain.Balance{
		AccountID: accountID, Currency: "USDC", Amount: 1000,
	}, nil)
	d.balanceRepo.EXPECT().UpdateAmount(ctx, tx, accountID, "USDC", int64(700)).Return(nil)
	d.balanceRepo.EXPECT().AddAmount(ctx, tx, ownerID, "USDC", int64(300)).Return(nil)
	d.subRepo.EXPECT().UpdateLastSettled(ctx, tx, accountID, int64(1), now).Return(nil)
	d.settlementRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	result, err := d.svc.Settle(ctx, accountID, 1)
	require.NoError(t, err)
	require.True(t, result.Due)
	require.NotNil(t, result.Settlement)
	assert.Equal(t, int64(3), result.Settlement.Periods)
	assert.Equal(t, int64(300), result.Settlement.ReferenceAmount)
	assert.Equal(t, int64(300), result.Settlement.DebitedAmount)
	assert.Equal(t, now, result.Settlement.CreatedAt)
	require.Len(t, result.Settlement.Payouts, 1)
	assert.Equal(t, ownerID, result.Settlement.Payouts[0].Owner)
}

func TestBillingService_Settle_DependencyFanOut(t *testing.T) {
	d := setupBillingService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	rootOwner := uuid.New()
	depOwnerA := uuid.New()
	depOwnerB := uuid.New()
	tx := &mockTx{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	svc := &domain.Service{
		ID: 1, BillingPeriod: 24 * time.Hour, Price: 100, Owner: rootOwner,
		DependsOn: []domain.ServiceNode{
			{ID: 2, Price: 30, Owner: depOwnerA, DependsOn: []domain.ServiceNode{
				{ID: 3, Price: 10, Owner: depOwnerB},
			}},
		},
	}
	sub := &domain.Subscription{
		AccountID: accountID, ServiceID: 1, Currency: "WEGLD",
		LastSettled: now.Add(-36 * time.Hour), // 1.5 periods -> 2
	}

	d.serviceRepo.EXPECT().Get(ctx, int64(1)).Return(svc, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.subRepo.EXPECT().GetForUpdate(ctx, tx, accountID, int64(1)).Return(sub, nil)
	d.clock.EXPECT().Now().Return(now)
	d.whitelistRepo.EXPECT().Get(ctx, "WEGLD").Return(&domain.WhitelistRoute{Currency: "WEGLD", Route: "pair-wegld"}, nil)
	// Each node priced independently, converted at 2x
	d.oracle.EXPECT().Quote(ctx, "pair-wegld", int64(200), 5*time.Minute).Return(int64(400), nil)
	d.oracle.EXPECT().Quote(ctx, "pair-wegld", int64(60), 5*time.Minute).Return(int64(120), nil)
	d.oracle.EXPECT().Quote(ctx, "pair-wegld", int64(20), 5*time.Minute).Return(int64(40), nil)
	d.balanceRepo.EXPECT().GetForUpdate(ctx, tx, accountID, "WEGLD").Return(&domain.Balance{
		AccountID: accountID, Currency: "WEGLD", Amount: 1000,
	}, nil)
	d.balanceRepo.EXPECT().UpdateAmount(ctx, tx, accountID, "WEGLD", int64(1000-560)).Return(nil)
	d.balanceRepo.EXPECT().AddAmount(ctx, tx, rootOwner, "WEGLD", int64(400)).Return(nil)
	d.balanceRepo.EXPECT().AddAmount(ctx, tx, depOwnerA, "WEGLD", int64(120)).Return(nil)
	d.balanceRepo.EXPECT().AddAmount(ctx, tx, depOwnerB, "WEGLD", int64(40)).Return(nil)
	d.subRepo.EXPECT().UpdateLastSettled(ctx, tx, accountID, int64(1), now).Return(nil)
	d.settlementRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	result, err := d.svc.Settle(ctx, accountID, 1)
	require.NoError(t, err)

	// Conservation: the single debit equals the sum of all payout credits.
	var credited int64
	for _, p := range result.Settlement.Payouts {
		credited += p.Amount
	}
	assert.Equal(t, result.Settlement.DebitedAmount, credited)
	assert.Equal(t, int64(560), credited)
	assert.Len(t, result.Settlement.Payouts, 3)
}

func TestBillingService_Settle_NotYetDue(t *testing.T) {
	d := setupBillingService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	svc := &domain.Service{ID: 1, BillingPeriod: 24 * time.Hour, Price: 100, Owner: uuid.New()}
	sub := &domain.Subscription{
		AccountID: accountID, ServiceID: 1, Currency: "USDC",
		LastSettled: now.Add(-2 * time.Hour),
	}

	d.serviceRepo.EXPECT().Get(ctx, int64(1)).Return(svc, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.subRepo.EXPECT().GetForUpdate(ctx, tx, accountID, int64(1)).Return(sub, nil)
	d.clock.EXPECT().Now().Return(now)

	result, err := d.svc.Settle(ctx, accountID, 1)
	require.NoError(t, err)
	assert.False(t, result.Due)
	assert.Nil(t, result.Settlement)
}

func TestBillingService_Settle_ServiceNotFound(t *testing.T) {
	d := setupBillingService(t)
	defer d.ctrl.Finish()

	d.serviceRepo.EXPECT().Get(gomock.Any(), int64(99)).Return(nil, nil)

	result, err := d.svc.Settle(context.Background(), uuid.New(), 99)
	assert.Nil(t, result)
	assertAppError(t, err, "REG_002")
}

func TestBillingService_Settle_NotSubscribed(t *testing.T) {
	d := setupBillingService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}

	d.serviceRepo.EXPECT().Get(ctx, int64(1)).Return(&domain.Service{ID: 1, BillingPeriod: time.Hour, Price: 5, Owner: uuid.New()}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.subRepo.EXPECT().GetForUpdate(ctx, tx, accountID, int64(1)).Return(nil, nil)

	result, err := d.svc.Settle(ctx, accountID, 1)
	assert.Nil(t, result)
	assertAppError(t, err, "BIL_001")
}

func TestBillingService_Settle_CurrencyNotWhitelisted(t *testing.T) {
	d := setupBillingService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	d.serviceRepo.EXPECT().Get(ctx, int64(1)).Return(&domain.Service{ID: 1, BillingPeriod: time.Hour, Price: 5, Owner: uuid.New()}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.subRepo.EXPECT().GetForUpdate(ctx, tx, accountID, int64(1)).Return(&domain.Subscription{
		AccountID: accountID, ServiceID: 1, Currency: "SHIB",
		LastSettled: now.Add(-2 * time.Hour),
	}, nil)
	d.clock.EXPECT().Now().Return(now)
	d.whitelistRepo.EXPECT().Get(ctx, "SHIB").Return(nil, nil)

	result, err := d.svc.Settle(ctx, accountID, 1)
	assert.Nil(t, result)
	assertAppError(t, err, "WL_001")
}

func TestBillingService_Settle_InsufficientFunds(t *testing.T) {
	d := setupBillingService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	svc := &domain.Service{ID: 1, BillingPeriod: 24 * time.Hour, Price: 100, Owner: uuid.New()}
	sub := &domain.Subscription{
		AccountID: accountID, ServiceID: 1, Currency: "USDC",
		LastSettled: now.Add(-25 * time.Hour),
	}

	d.serviceRepo.EXPECT().Get(ctx, int64(1)).Return(svc, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.subRepo.EXPECT().GetForUpdate(ctx, tx, accountID, int64(1)).Return(sub, nil)
	d.clock.EXPECT().Now().Return(now)
	d.whitelistRepo.EXPECT().Get(ctx, "USDC").Return(&domain.WhitelistRoute{Currency: "USDC", Route: "pair"}, nil)
	d.oracle.EXPECT().Quote(ctx, "pair", int64(200), 5*time.Minute).Return(int64(200), nil)
	d.balanceRepo.EXPECT().GetForUpdate(ctx, tx, accountID, "USDC").Return(&domain.Balance{
		AccountID: accountID, Currency: "USDC", Amount: 150,
	}, nil)
	// No UpdateAmount, no UpdateLastSettled: the settlement aborts whole.

	result, err := d.svc.Settle(ctx, accountID, 1)
	assert.Nil(t, result)
	assertAppError(t, err, "LED_001")
}

func TestBillingService_Settle_OracleFailure(t *testing.T) {
	d := setupBillingService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	d.serviceRepo.EXPECT().Get(ctx, int64(1)).Return(&domain.Service{ID: 1, BillingPeriod: time.Hour, Price: 50, Owner: uuid.New()}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.subRepo.EXPECT().GetForUpdate(ctx, tx, accountID, int64(1)).Return(&domain.Subscription{
		AccountID: accountID, ServiceID: 1, Currency: "USDC",
		LastSettled: now.Add(-90 * time.Minute),
	}, nil)
	d.clock.EXPECT().Now().Return(now)
	d.whitelistRepo.EXPECT().Get(ctx, "USDC").Return(&domain.WhitelistRoute{Currency: "USDC", Route: "pair"}, nil)
	d.oracle.EXPECT().Quote(ctx, "pair", int64(100), 5*time.Minute).Return(int64(0), fmt.Errorf("oracle unreachable"))

	result, err := d.svc.Settle(ctx, accountID, 1)
	assert.Nil(t, result)
	assertAppError(t, err, "BIL_002")
}

// ==================== Collect Tests ====================

func TestBillingService_Collect_ServiceNotFound(t *testing.T) {
	d := setupBillingService(t)
	defer d.ctrl.Finish()

	d.serviceRepo.EXPECT().Get(gomock.Any(), int64(404)).Return(nil, nil)

	report, err := d.svc.Collect(context.Background(), 404)
	assert.Nil(t, report)
	assertAppError(t, err, "REG_002")
}

func TestBillingService_Collect_NoSubscribers(t *testing.T) {
	d := setupBillingService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.serviceRepo.EXPECT().Get(ctx, int64(1)).Return(&domain.Service{ID: 1, BillingPeriod: time.Hour, Price: 5, Owner: uuid.New()}, nil)
	d.subRepo.EXPECT().ListAccountsByService(ctx, int64(1)).Return(nil, nil)

	report, err := d.svc.Collect(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Settled)
	assert.Equal(t, 0, report.Skipped)
	assert.Empty(t, report.Failures)
}

func TestBillingService_Collect_IsolatesFailures(t *testing.T) {
	d := setupBillingService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	payer := uuid.New()
	broke := uuid.New()
	owner := uuid.New()
	tx := &mockTx{}

	svc := &domain.Service{ID: 1, BillingPeriod: 24 * time.Hour, Price: 100, Owner: owner}
	route := &domain.WhitelistRoute{Currency: "USDC", Route: "pair"}
	dueSub := func(account uuid.UUID) *domain.Subscription {
		return &domain.Subscription{
			AccountID: account, ServiceID: 1, Currency: "USDC",
			LastSettled: now.Add(-25 * time.Hour),
		}
	}

	// Collect resolves the service once, then once per Settle call.
	d.serviceRepo.EXPECT().Get(ctx, int64(1)).Return(svc, nil).Times(3)
	d.subRepo.EXPECT().ListAccountsByService(ctx, int64(1)).Return([]uuid.UUID{payer, broke}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil).Times(2)
	d.clock.EXPECT().Now().Return(now).Times(2)
	d.whitelistRepo.EXPECT().Get(ctx, "USDC").Return(route, nil).Times(2)
	d.oracle.EXPECT().Quote(ctx, "pair", int64(200), 5*time.Minute).Return(int64(200), nil).Times(2)

	// First subscriber pays.
	d.subRepo.EXPECT().GetForUpdate(ctx, tx, payer, int64(1)).Return(dueSub(payer), nil)
	d.balanceRepo.EXPECT().GetForUpdate(ctx, tx, payer, "USDC").Return(&domain.Balance{AccountID: payer, Currency: "USDC", Amount: 500}, nil)
	d.balanceRepo.EXPECT().UpdateAmount(ctx, tx, payer, "USDC", int64(300)).Return(nil)
	d.balanceRepo.EXPECT().AddAmount(ctx, tx, owner, "USDC", int64(200)).Return(nil)
	d.subRepo.EXPECT().UpdateLastSettled(ctx, tx, payer, int64(1), now).Return(nil)
	d.settlementRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	// Second subscriber is short; failure is reported, not propagated.
	d.subRepo.EXPECT().GetForUpdate(ctx, tx, broke, int64(1)).Return(dueSub(broke), nil)
	d.balanceRepo.EXPECT().GetForUpdate(ctx, tx, broke, "USDC").Return(&domain.Balance{AccountID: broke, Currency: "USDC", Amount: 10}, nil)

	report, err := d.svc.Collect(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Settled)
	assert.Equal(t, 0, report.Skipped)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, broke, report.Failures[0].AccountID)
	assert.Contains(t, report.Failures[0].Reason, "LED_001")
}
