package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"recurring-billing-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Username == a.Username {
			return fmt.Errorf("username already exists")
		}
	}
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Balance Repo ---

type balanceKey struct {
	accountID uuid.UUID
	currency  string
}

type inMemoryBalanceRepo struct {
	mu       sync.RWMutex
	balances map[balanceKey]*domain.Balance
}

func newInMemoryBalanceRepo() *inMemoryBalanceRepo {
	return &inMemoryBalanceRepo{balances: make(map[balanceKey]*domain.Balance)}
}

func (r *inMemoryBalanceRepo) Get(ctx context.Context, accountID uuid.UUID, currency string) (*domain.Balance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.balances[balanceKey{accountID, currency}]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *inMemoryBalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string) (*domain.Balance, error) {
	return r.Get(ctx, accountID, currency)
}

func (r *inMemoryBalanceRepo) Create(ctx context.Context, tx pgx.Tx, balance *domain.Balance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *balance
	r.balances[balanceKey{balance.AccountID, balance.Currency}] = &cp
	return nil
}

func (r *inMemoryBalanceRepo) UpdateAmount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[balanceKey{accountID, currency}]
	if !ok {
		return fmt.Errorf("balance not found")
	}
	b.Amount = amount
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryBalanceRepo) AddAmount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, currency string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := balanceKey{accountID, currency}
	b, ok := r.balances[key]
	if !ok {
		now := time.Now().UTC()
		r.balances[key] = &domain.Balance{
			AccountID: accountID,
			Currency:  currency,
			Amount:    amount,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return nil
	}
	b.Amount += amount
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// --- In-Memory Service Repo ---

type inMemoryServiceRepo struct {
	mu       sync.RWMutex
	services map[int64]*domain.Service
}

func newInMemoryServiceRepo() *inMemoryServiceRepo {
	return &inMemoryServiceRepo{services: make(map[int64]*domain.Service)}
}

func (r *inMemoryServiceRepo) CreateIfAbsent(ctx context.Context, service *domain.Service) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[service.ID]; ok {
		return false, nil
	}
	cp := *service
	r.services[service.ID] = &cp
	return true, nil
}

func (r *inMemoryServiceRepo) Get(ctx context.Context, id int64) (*domain.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.services[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// --- In-Memory Whitelist Repo ---

type inMemoryWhitelistRepo struct {
	mu     sync.RWMutex
	routes map[string]*domain.WhitelistRoute
}

func newInMemoryWhitelistRepo() *inMemoryWhitelistRepo {
	return &inMemoryWhitelistRepo{routes: make(map[string]*domain.WhitelistRoute)}
}

func (r *inMemoryWhitelistRepo) Set(ctx context.Context, route *domain.WhitelistRoute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *route
	r.routes[route.Currency] = &cp
	return nil
}

func (r *inMemoryWhitelistRepo) Get(ctx context.Context, currency string) (*domain.WhitelistRoute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.routes[currency]
	if !ok {
		return nil, nil
	}
	cp := *route
	return &cp, nil
}

func (r *inMemoryWhitelistRepo) Delete(ctx context.Context, currency string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.routes, currency)
	return nil
}

// --- In-Memory Subscription Repo ---

type subKey struct {
	accountID uuid.UUID
	serviceID int64
}

type inMemorySubscriptionRepo struct {
	mu   sync.RWMutex
	subs map[subKey]*domain.Subscription
}

func newInMemorySubscriptionRepo() *inMemorySubscriptionRepo {
	return &inMemorySubscriptionRepo{subs: make(map[subKey]*domain.Subscription)}
}

func (r *inMemorySubscriptionRepo) Upsert(ctx context.Context, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	r.subs[subKey{sub.AccountID, sub.ServiceID}] = &cp
	return nil
}

func (r *inMemorySubscriptionRepo) Get(ctx context.Context, accountID uuid.UUID, serviceID int64) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subs[subKey{accountID, serviceID}]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *inMemorySubscriptionRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, serviceID int64) (*domain.Subscription, error) {
	return r.Get(ctx, accountID, serviceID)
}

func (r *inMemorySubscriptionRepo) UpdateLastSettled(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, serviceID int64, lastSettled time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[subKey{accountID, serviceID}]
	if !ok {
		return fmt.Errorf("subscription not found")
	}
	s.LastSettled = lastSettled
	return nil
}

func (r *inMemorySubscriptionRepo) Delete(ctx context.Context, accountID uuid.UUID, serviceID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, subKey{accountID, serviceID})
	return nil
}

func (r *inMemorySubscriptionRepo) ListAccountsByService(ctx context.Context, serviceID int64) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []uuid.UUID
	for key := range r.subs {
		if key.serviceID == serviceID {
			out = append(out, key.accountID)
		}
	}
	// Deterministic iteration order for tests.
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (r *inMemorySubscriptionRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Subscription
	for key, s := range r.subs {
		if key.accountID == accountID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServiceID < out[j].ServiceID })
	return out, nil
}

// --- In-Memory Settlement Repo ---

type inMemorySettlementRepo struct {
	mu          sync.RWMutex
	settlements []domain.Settlement
}

func newInMemorySettlementRepo() *inMemorySettlementRepo {
	return &inMemorySettlementRepo{}
}

func (r *inMemorySettlementRepo) Create(ctx context.Context, tx pgx.Tx, settlement *domain.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settlements = append(r.settlements, *settlement)
	return nil
}

func (r *inMemorySettlementRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Settlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Settlement
	for i := len(r.settlements) - 1; i >= 0 && len(out) < limit; i-- {
		if r.settlements[i].AccountID == accountID {
			out = append(out, r.settlements[i])
		}
	}
	return out, nil
}

func (r *inMemorySettlementRepo) all() []domain.Settlement {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Settlement, len(r.settlements))
	copy(out, r.settlements)
	return out
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }

// --- Test Collaborators ---

// fakeClock is a mutable clock shared by all services under test, so a test
// can advance billing time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fixedOracle converts reference amounts by a fixed per-route ratio.
type fixedOracle struct {
	mu     sync.Mutex
	rates  map[string][2]int64 // route -> {numerator, denominator}
	quotes int
}

func newFixedOracle() *fixedOracle {
	return &fixedOracle{rates: make(map[string][2]int64)}
}

func (o *fixedOracle) setRate(route string, num, den int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rates[route] = [2]int64{num, den}
}

func (o *fixedOracle) Quote(ctx context.Context, route string, referenceAmount int64, window time.Duration) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quotes++
	rate, ok := o.rates[route]
	if !ok {
		return 0, fmt.Errorf("no rate published for route %s", route)
	}
	return referenceAmount * rate[0] / rate[1], nil
}

// recordingTransferor collects external transfer requests instead of
// dispatching them.
type recordingTransferor struct {
	mu        sync.Mutex
	transfers []transferRecord
}

type transferRecord struct {
	AccountID uuid.UUID
	Currency  string
	Amount    int64
}

func newRecordingTransferor() *recordingTransferor {
	return &recordingTransferor{}
}

func (d *recordingTransferor) TransferOut(ctx context.Context, accountID uuid.UUID, currency string, amount int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transfers = append(d.transfers, transferRecord{AccountID: accountID, Currency: currency, Amount: amount})
	return nil
}

func (d *recordingTransferor) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.transfers)
}
