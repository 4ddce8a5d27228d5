package database

import (
	"context"
	"fmt"
)

// LockKey takes a transaction-scoped advisory lock on key.
// The lock is released when the enclosing transaction commits or rolls back,
// so callers must pass a pgx.Tx, never the pool.
func LockKey(ctx context.Context, tx TxQuerier, key string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("advisory lock %s: %w", key, err)
	}
	return nil
}

// BundleLockKey is the advisory lock key guarding every coupon of one bundle.
func BundleLockKey(bundleID string) string {
	return "bundle:" + bundleID
}

// OwnershipLockKey is the advisory lock key guarding a customer's purchase of a campaign.
func OwnershipLockKey(customerID, campaignID string) string {
	return "owner:" + customerID + ":" + campaignID
}
