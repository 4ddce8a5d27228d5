package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressRepository_Increment_Upserts(t *testing.T) {
	customerID, campaignID := uuid.New(), uuid.New()
	tx := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			assert.Contains(t, sql, "ON CONFLICT (customer_id, campaign_id) DO UPDATE")
			assert.Contains(t, sql, "current_count = customer_campaign_progress.current_count + 1")
			assert.Contains(t, sql, "RETURNING current_count")
			assert.Equal(t, customerID, args[1])
			assert.Equal(t, campaignID, args[2])
			assert.Equal(t, 5, args[3])
			return &mockRow{scanFn: func(dest ...any) error {
				*(dest[0].(*int)) = 3
				return nil
			}}
		},
	}

	repo := NewProgressRepositoryWithPool(&mockPool{})
	count, err := repo.Increment(context.Background(), tx, customerID, campaignID, 5)

	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestProgressRepository_Increment_DatabaseError(t *testing.T) {
	dbErr := errors.New("deadlock detected")
	tx := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error { return dbErr }}
		},
	}

	repo := NewProgressRepositoryWithPool(&mockPool{})
	count, err := repo.Increment(context.Background(), tx, uuid.New(), uuid.New(), 5)

	require.Error(t, err)
	assert.Zero(t, count)
	assert.True(t, errors.Is(err, dbErr))
	assert.Contains(t, err.Error(), "increment progress")
}

func TestProgressRepository_Reset(t *testing.T) {
	var c capture
	tx := &mockPool{execFn: c.exec("UPDATE 1")}
	customerID, campaignID := uuid.New(), uuid.New()

	repo := NewProgressRepositoryWithPool(&mockPool{})
	err := repo.Reset(context.Background(), tx, customerID, campaignID)

	require.NoError(t, err)
	assert.Contains(t, c.sql, "current_count = 0")
	assert.Equal(t, []any{customerID, campaignID}, c.args)
}

func TestProgressRepository_Reset_DatabaseError(t *testing.T) {
	tx := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, errors.New("connection lost")
		},
	}

	repo := NewProgressRepositoryWithPool(&mockPool{})
	err := repo.Reset(context.Background(), tx, uuid.New(), uuid.New())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reset progress")
}
