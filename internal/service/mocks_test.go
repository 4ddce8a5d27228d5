package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/loyalty-pos/internal/model"
	"github.com/fairyhunter13/loyalty-pos/pkg/database"
)

// mockTx is a mock implementation of pgx.Tx for testing transactions.
// Begin returns a nested mockTx, the way pgx opens a savepoint.
type mockTx struct {
	commitFn func(ctx context.Context) error
	execFn   func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)

	mu         sync.Mutex
	committed  bool
	rolledBack bool
	execs      []string
	savepoints []*mockTx
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sp := &mockTx{}
	m.savepoints = append(m.savepoints, sp)
	return sp, nil
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFn != nil {
		if err := m.commitFn(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.committed = true
	m.mu.Unlock()
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	m.mu.Lock()
	for _, a := range arguments {
		if s, ok := a.(string); ok {
			m.execs = append(m.execs, s)
		}
	}
	m.mu.Unlock()
	if m.execFn != nil {
		return m.execFn(ctx, sql, arguments...)
	}
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

func (m *mockTx) lockedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.execs...)
}

// mockTxBeginner hands out a fresh mockTx per Begin and remembers them in order.
type mockTxBeginner struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)

	mu  sync.Mutex
	txs []*mockTx
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &mockTx{}
	m.txs = append(m.txs, tx)
	return tx, nil
}

func (m *mockTxBeginner) first() *mockTx {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.txs) == 0 {
		return nil
	}
	return m.txs[0]
}

// fakeCoupons is an in-memory CouponRepository.
type fakeCoupons struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*model.CustomerCoupon
	campaigns map[uuid.UUID]*model.Campaign

	insertErr     error
	listBundleErr error
	reduceErr     error
	markUsedMiss  bool
}

func newFakeCoupons() *fakeCoupons {
	return &fakeCoupons{
		rows:      map[uuid.UUID]*model.CustomerCoupon{},
		campaigns: map[uuid.UUID]*model.Campaign{},
	}
}

func (f *fakeCoupons) put(c model.CustomerCoupon) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	f.rows[c.ID] = &c
}

func (f *fakeCoupons) get(id uuid.UUID) model.CustomerCoupon {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneCoupon(f.rows[id])
}

func (f *fakeCoupons) all() []model.CustomerCoupon {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.CustomerCoupon, 0, len(f.rows))
	for _, c := range f.rows {
		out = append(out, cloneCoupon(c))
	}
	sortCoupons(out)
	return out
}

func (f *fakeCoupons) GetByID(ctx context.Context, q database.TxQuerier, id uuid.UUID) (*model.CustomerCoupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	out := cloneCoupon(c)
	out.Campaign = f.campaigns[c.CampaignID]
	return &out, nil
}

func (f *fakeCoupons) GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.CustomerCoupon, error) {
	return f.GetByID(ctx, tx, id)
}

func (f *fakeCoupons) MarkUsed(ctx context.Context, tx database.TxQuerier, id uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok || c.Status != model.CouponActive || f.markUsedMiss {
		return false, nil
	}
	c.Status = model.CouponUsed
	c.UsedAt = &at
	return true, nil
}

func (f *fakeCoupons) MarkExpired(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.rows[id]; ok && c.Status == model.CouponActive {
		c.Status = model.CouponExpired
	}
	return nil
}

func (f *fakeCoupons) InsertBatch(ctx context.Context, tx database.TxQuerier, coupons []model.CustomerCoupon) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, c := range coupons {
		f.put(c)
	}
	return nil
}

func (f *fakeCoupons) HasActiveForCampaign(ctx context.Context, tx database.TxQuerier, customerID, campaignID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.CustomerID == customerID && c.CampaignID == campaignID && c.Status == model.CouponActive {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCoupons) ListBundleForUpdate(ctx context.Context, tx database.TxQuerier, bundleID uuid.UUID) ([]model.CustomerCoupon, error) {
	if f.listBundleErr != nil {
		return nil, f.listBundleErr
	}
	return f.filter(func(c *model.CustomerCoupon) bool {
		return c.BundleID != nil && *c.BundleID == bundleID
	}), nil
}

func (f *fakeCoupons) ListBySourceTransactionForUpdate(ctx context.Context, tx database.TxQuerier, customerID, sourceTransactionID uuid.UUID) ([]model.CustomerCoupon, error) {
	return f.filter(func(c *model.CustomerCoupon) bool {
		return c.CustomerID == customerID && c.SourceTransactionID != nil && *c.SourceTransactionID == sourceTransactionID
	}), nil
}

func (f *fakeCoupons) ReduceBonus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, value decimal.Decimal, stamps map[string]any) error {
	if f.reduceErr != nil {
		return f.reduceErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.rows[id]
	c.DiscountValue = decimal.NewNullDecimal(value)
	c.Metadata = mergeStamps(c.Metadata, stamps)
	return nil
}

func (f *fakeCoupons) ConsumeBonus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, at time.Time, stamps map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.rows[id]
	c.Status = model.CouponUsed
	c.UsedAt = &at
	c.DiscountValue = decimal.NewNullDecimal(decimal.Zero)
	c.Metadata = mergeStamps(c.Metadata, stamps)
	return nil
}

func (f *fakeCoupons) ConsumeCoupons(ctx context.Context, tx database.TxQuerier, ids []uuid.UUID, at time.Time, stamps map[string]any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		c, ok := f.rows[id]
		if !ok || c.Status != model.CouponActive {
			continue
		}
		c.Status = model.CouponUsed
		c.UsedAt = &at
		c.Metadata = mergeStamps(c.Metadata, stamps)
		n++
	}
	return n, nil
}

func (f *fakeCoupons) ListActiveByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.CustomerCoupon, error) {
	return f.filter(func(c *model.CustomerCoupon) bool {
		return c.CustomerID == customerID && c.Status == model.CouponActive
	}), nil
}

func (f *fakeCoupons) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, c := range f.rows {
		if c.Status == model.CouponActive && c.IsExpired(now) {
			c.Status = model.CouponExpired
			n++
		}
	}
	return n, nil
}

func (f *fakeCoupons) filter(keep func(c *model.CustomerCoupon) bool) []model.CustomerCoupon {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CustomerCoupon
	for _, c := range f.rows {
		if keep(c) {
			out = append(out, cloneCoupon(c))
		}
	}
	sortCoupons(out)
	return out
}

func cloneCoupon(c *model.CustomerCoupon) model.CustomerCoupon {
	out := *c
	out.Metadata = mergeStamps(nil, c.Metadata)
	return out
}

func mergeStamps(dst, stamps map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(stamps))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range stamps {
		out[k] = v
	}
	return out
}

// sortCoupons orders bundle parts first by part number, then everything else by code.
func sortCoupons(cs []model.CustomerCoupon) {
	sort.Slice(cs, func(i, j int) bool {
		pi, pj := partOf(cs[i]), partOf(cs[j])
		if pi != pj {
			return pi < pj
		}
		return cs[i].Code < cs[j].Code
	})
}

func partOf(c model.CustomerCoupon) int {
	if c.Part == nil {
		return 1 << 30
	}
	return *c.Part
}

// fakeCampaigns is an in-memory CampaignRepository.
type fakeCampaigns struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*model.Campaign
	listErr error
}

func newFakeCampaigns(cs ...model.Campaign) *fakeCampaigns {
	f := &fakeCampaigns{rows: map[uuid.UUID]*model.Campaign{}}
	for i := range cs {
		c := cs[i]
		f.rows[c.ID] = &c
	}
	return f
}

func (f *fakeCampaigns) GetByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, ErrCampaignNotFound
	}
	out := *c
	return &out, nil
}

func (f *fakeCampaigns) ListActiveByType(ctx context.Context, q database.TxQuerier, campaignType model.CampaignType) ([]model.Campaign, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.filter(func(c *model.Campaign) bool {
		return c.Type == campaignType && c.IsActive && c.DeletedAt == nil
	}), nil
}

func (f *fakeCampaigns) ListAvailable(ctx context.Context, customerType string) ([]model.Campaign, error) {
	return f.filter(func(c *model.Campaign) bool {
		return c.IsActive && c.DeletedAt == nil && (c.CustomerType == model.CustomerTypeAll || c.CustomerType == customerType)
	}), nil
}

func (f *fakeCampaigns) List(ctx context.Context, deleted bool) ([]model.Campaign, error) {
	return f.filter(func(c *model.Campaign) bool {
		return (c.DeletedAt != nil) == deleted
	}), nil
}

func (f *fakeCampaigns) Insert(ctx context.Context, c *model.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.rows[c.ID] = &cp
	return nil
}

func (f *fakeCampaigns) Update(ctx context.Context, c *model.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[c.ID]; !ok {
		return ErrCampaignNotFound
	}
	cp := *c
	f.rows[c.ID] = &cp
	return nil
}

func (f *fakeCampaigns) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return ErrCampaignNotFound
	}
	c.DeletedAt = &at
	c.IsActive = false
	return nil
}

func (f *fakeCampaigns) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return ErrCampaignNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeCampaigns) filter(keep func(c *model.Campaign) bool) []model.Campaign {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Campaign
	for _, c := range f.rows {
		if keep(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// fakeProgress is an in-memory ProgressRepository.
type fakeProgress struct {
	mu       sync.Mutex
	counts   map[[2]uuid.UUID]int
	incCalls int
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{counts: map[[2]uuid.UUID]int{}}
}

func (f *fakeProgress) Increment(ctx context.Context, tx database.TxQuerier, customerID, campaignID uuid.UUID, target int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]uuid.UUID{customerID, campaignID}
	f.counts[key]++
	f.incCalls++
	return f.counts[key], nil
}

func (f *fakeProgress) Reset(ctx context.Context, tx database.TxQuerier, customerID, campaignID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[[2]uuid.UUID{customerID, campaignID}] = 0
	return nil
}

func (f *fakeProgress) count(customerID, campaignID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[[2]uuid.UUID{customerID, campaignID}]
}

// fakeTransactions is an in-memory TransactionRepository.
type fakeTransactions struct {
	mu        sync.Mutex
	rows      []*model.Transaction
	insertErr error
	listFn    func(customerID *uuid.UUID, limit int) ([]model.TransactionView, error)
}

func (f *fakeTransactions) Insert(ctx context.Context, tx database.TxQuerier, t *model.Transaction) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeTransactions) UpdateMetadata(ctx context.Context, tx database.TxQuerier, id uuid.UUID, metadata model.TransactionMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.rows {
		if t.ID == id {
			t.Metadata = metadata
			return nil
		}
	}
	return errors.New("transaction not found")
}

func (f *fakeTransactions) ListRecent(ctx context.Context, customerID *uuid.UUID, limit int) ([]model.TransactionView, error) {
	if f.listFn != nil {
		return f.listFn(customerID, limit)
	}
	return nil, nil
}

func (f *fakeTransactions) DeleteAll(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.rows))
	f.rows = nil
	return n, nil
}

func (f *fakeTransactions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeTransactions) last() *model.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rows) == 0 {
		return nil
	}
	return f.rows[len(f.rows)-1]
}

// fakeCustomers is an in-memory CustomerRepository.
type fakeCustomers struct {
	rows map[uuid.UUID]model.Customer
	err  error
}

func newFakeCustomers(cs ...model.Customer) *fakeCustomers {
	f := &fakeCustomers{rows: map[uuid.UUID]model.Customer{}}
	for _, c := range cs {
		f.rows[c.ID] = c
	}
	return f
}

func (f *fakeCustomers) GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.rows[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return &c, nil
}

// fakeDiscounts is an in-memory DiscountRepository.
type fakeDiscounts struct {
	rows map[uuid.UUID]model.Discount
}

func (f *fakeDiscounts) GetByID(ctx context.Context, id uuid.UUID) (*model.Discount, error) {
	d, ok := f.rows[id]
	if !ok {
		return nil, ErrDiscountNotFound
	}
	return &d, nil
}

// fakeWallet is an in-memory Wallet.
type fakeWallet struct {
	mu       sync.Mutex
	balances map[uuid.UUID]decimal.Decimal
	payments []uuid.UUID
	payErr   error
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{balances: map[uuid.UUID]decimal.Decimal{}}
}

func (f *fakeWallet) TopUp(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal, actorID string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[customerID] = f.balances[customerID].Add(amount)
	return f.balances[customerID], nil
}

func (f *fakeWallet) GetBalance(ctx context.Context, q database.TxQuerier, customerID uuid.UUID) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[customerID], nil
}

func (f *fakeWallet) PayWithWallet(ctx context.Context, q database.TxQuerier, customerID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID, actorID string) (decimal.Decimal, error) {
	if f.payErr != nil {
		return decimal.Zero, f.payErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[customerID] = f.balances[customerID].Sub(amount)
	f.payments = append(f.payments, transactionID)
	return f.balances[customerID], nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(i int) *int {
	return &i
}
