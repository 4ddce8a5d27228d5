package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// mockRow implements pgx.Row for testing single-row lookups.
type mockRow struct {
	scanFn func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.scanFn != nil {
		return m.scanFn(dest...)
	}
	return nil
}

// mockRows implements pgx.Rows; each entry of scans fills one row.
type mockRows struct {
	scans     []func(dest ...any) error
	index     int
	errOnScan error
	errOnRows error
	closed    bool
}

func (m *mockRows) Close() { m.closed = true }

func (m *mockRows) Err() error {
	return m.errOnRows
}

func (m *mockRows) Next() bool {
	if m.index < len(m.scans) {
		m.index++
		return true
	}
	return false
}

func (m *mockRows) Scan(dest ...any) error {
	if m.errOnScan != nil {
		return m.errOnScan
	}
	if m.index > 0 && m.index <= len(m.scans) && m.scans[m.index-1] != nil {
		return m.scans[m.index-1](dest...)
	}
	return nil
}

func (m *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                          { return nil }
func (m *mockRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                              { return nil }

// mockPool implements PoolInterface and database.TxQuerier for testing.
type mockPool struct {
	execFn     func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (m *mockPool) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	if m.execFn != nil {
		return m.execFn(ctx, sql, arguments...)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (m *mockPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFn != nil {
		return m.queryRowFn(ctx, sql, args...)
	}
	return &mockRow{}
}

func (m *mockPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, sql, args...)
	}
	return &mockRows{}, nil
}

// capture records the last statement and arguments seen by a mockPool.
type capture struct {
	sql  string
	args []any
}

func (c *capture) exec(tag string) func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
		c.sql = sql
		c.args = arguments
		return pgconn.NewCommandTag(tag), nil
	}
}

func noRows(ctx context.Context, sql string, args ...any) pgx.Row {
	return &mockRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
}
