package wallet

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/loyalty-pos/internal/service"
)

type mockRow struct {
	scanFn func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.scanFn != nil {
		return m.scanFn(dest...)
	}
	return nil
}

// mockTx implements pgx.Tx and Pool; only the methods the wallet calls do anything.
type mockTx struct {
	pgx.Tx

	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	execs      []string
	execArgs   [][]any
	execErr    error
	committed  bool
	rolledBack bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { return m, nil }

func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	m.execs = append(m.execs, sql)
	m.execArgs = append(m.execArgs, arguments)
	if m.execErr != nil {
		return pgconn.CommandTag{}, m.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFn != nil {
		return m.queryRowFn(ctx, sql, args...)
	}
	return &mockRow{}
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func balanceRow(value string) func(ctx context.Context, sql string, args ...any) pgx.Row {
	return func(ctx context.Context, sql string, args ...any) pgx.Row {
		return &mockRow{scanFn: func(dest ...any) error {
			*(dest[0].(*decimal.Decimal)) = decimal.RequireFromString(value)
			return nil
		}}
	}
}

func noRows(ctx context.Context, sql string, args ...any) pgx.Row {
	return &mockRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
}

func TestWallet_TopUp_Success(t *testing.T) {
	var creditSQL string
	tx := &mockTx{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			creditSQL = sql
			return balanceRow("150.00")(ctx, sql, args...)
		},
	}
	customerID := uuid.New()

	w := NewWithPool(tx)
	balance, err := w.TopUp(context.Background(), customerID, decimal.NewFromInt(50), "cashier-1")

	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(150)))
	assert.Contains(t, creditSQL, "balance = balance + $2")
	assert.True(t, tx.committed)
	require.Len(t, tx.execs, 1)
	assert.Contains(t, tx.execs[0], "INSERT INTO wallet_ledger")
	assert.Equal(t, ledgerTopUp, tx.execArgs[0][2])
	assert.Equal(t, "cashier-1", tx.execArgs[0][5])
}

func TestWallet_TopUp_UnknownCustomer(t *testing.T) {
	tx := &mockTx{queryRowFn: noRows}

	w := NewWithPool(tx)
	_, err := w.TopUp(context.Background(), uuid.New(), decimal.NewFromInt(10), "cashier-1")

	assert.ErrorIs(t, err, service.ErrCustomerNotFound)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
	assert.Empty(t, tx.execs, "no ledger row for a missing customer")
}

func TestWallet_TopUp_LedgerFailureRollsBack(t *testing.T) {
	tx := &mockTx{queryRowFn: balanceRow("20"), execErr: errors.New("disk full")}

	w := NewWithPool(tx)
	_, err := w.TopUp(context.Background(), uuid.New(), decimal.NewFromInt(10), "cashier-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger")
	assert.True(t, tx.rolledBack)
}

func TestWallet_TopUp_RejectsNonPositive(t *testing.T) {
	w := NewWithPool(&mockTx{})

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, err := w.TopUp(context.Background(), uuid.New(), amount, "cashier-1")
		assert.ErrorIs(t, err, service.ErrInvalidRequest)
	}
}

func TestWallet_GetBalance(t *testing.T) {
	w := NewWithPool(&mockTx{})

	balance, err := w.GetBalance(context.Background(), &mockTx{queryRowFn: balanceRow("42.50")}, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "42.50", balance.StringFixed(2))

	_, err = w.GetBalance(context.Background(), &mockTx{queryRowFn: noRows}, uuid.New())
	assert.ErrorIs(t, err, service.ErrCustomerNotFound)
}

func TestWallet_PayWithWallet_Success(t *testing.T) {
	var debitSQL string
	tx := &mockTx{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			debitSQL = sql
			return balanceRow("7.00")(ctx, sql, args...)
		},
	}
	txnID := uuid.New()

	w := NewWithPool(&mockTx{})
	balance, err := w.PayWithWallet(context.Background(), tx, uuid.New(), decimal.NewFromInt(93), txnID, "cashier-1")

	require.NoError(t, err)
	assert.Equal(t, "7.00", balance.StringFixed(2))
	assert.Contains(t, debitSQL, "AND balance >= $2", "debit must be conditional")
	require.Len(t, tx.execArgs, 1)
	assert.Equal(t, ledgerPayment, tx.execArgs[0][2])
	assert.Equal(t, &txnID, tx.execArgs[0][4])
	assert.False(t, tx.committed, "payment must not commit the caller's transaction")
}

func TestWallet_PayWithWallet_InsufficientBalance(t *testing.T) {
	tx := &mockTx{queryRowFn: noRows}

	w := NewWithPool(&mockTx{})
	_, err := w.PayWithWallet(context.Background(), tx, uuid.New(), decimal.NewFromInt(93), uuid.New(), "cashier-1")

	require.ErrorIs(t, err, service.ErrInsufficientBalance)
	assert.True(t, strings.Contains(err.Error(), "93.00"))
	assert.Empty(t, tx.execs)
}

func TestNew_Production(t *testing.T) {
	require.NotNil(t, New(nil))
}
