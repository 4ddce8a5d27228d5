// Package wallet moves stored customer balance and records every movement in
// the wallet ledger.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/loyalty-pos/internal/service"
	"github.com/fairyhunter13/loyalty-pos/pkg/database"
)

const (
	ledgerTopUp   = "TOPUP"
	ledgerPayment = "PAYMENT"
)

// Pool is the database surface the wallet needs: plain queries plus transactions.
type Pool interface {
	database.TxQuerier
	database.TxBeginner
}

// Wallet is the Postgres-backed customer balance store.
type Wallet struct {
	pool Pool
}

// New creates a Wallet on a pgx pool.
func New(pool *pgxpool.Pool) *Wallet {
	return &Wallet{pool: pool}
}

// NewWithPool creates a Wallet with a custom pool interface.
// This is primarily used for testing.
func NewWithPool(pool Pool) *Wallet {
	return &Wallet{pool: pool}
}

// TopUp credits amount to the customer in its own transaction and returns the new balance.
func (w *Wallet) TopUp(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal, actorID string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: top-up amount must be positive", service.ErrInvalidRequest)
	}

	var balance decimal.Decimal
	err := database.WithTx(ctx, w.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE customers SET balance = balance + $2 WHERE id = $1 RETURNING balance`,
			customerID, amount).Scan(&balance)
		if errors.Is(err, pgx.ErrNoRows) {
			return service.ErrCustomerNotFound
		}
		if err != nil {
			return fmt.Errorf("credit wallet: %w", err)
		}
		return insertLedger(ctx, tx, customerID, ledgerTopUp, amount, nil, actorID)
	})
	if err != nil {
		return decimal.Zero, err
	}

	log.Info().
		Str("customer_id", customerID.String()).
		Str("amount", amount.StringFixed(2)).
		Str("balance", balance.StringFixed(2)).
		Msg("wallet topped up")
	return balance, nil
}

// GetBalance returns the customer's current balance as seen by q.
func (w *Wallet) GetBalance(ctx context.Context, q database.TxQuerier, customerID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := q.QueryRow(ctx, `SELECT balance FROM customers WHERE id = $1`, customerID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, service.ErrCustomerNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance of %s: %w", customerID, err)
	}
	return balance, nil
}

// PayWithWallet debits amount inside the caller's transaction and returns the new balance.
// The debit is conditional, so a concurrent payment can never drive the balance negative.
func (w *Wallet) PayWithWallet(ctx context.Context, q database.TxQuerier, customerID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID, actorID string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: payment amount must be positive", service.ErrInvalidRequest)
	}

	var balance decimal.Decimal
	err := q.QueryRow(ctx,
		`UPDATE customers SET balance = balance - $2 WHERE id = $1 AND balance >= $2 RETURNING balance`,
		customerID, amount).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: required %s", service.ErrInsufficientBalance, amount.StringFixed(2))
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("debit wallet: %w", err)
	}

	if err := insertLedger(ctx, q, customerID, ledgerPayment, amount, &transactionID, actorID); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func insertLedger(ctx context.Context, q database.TxQuerier, customerID uuid.UUID, kind string, amount decimal.Decimal, transactionID *uuid.UUID, actorID string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO wallet_ledger (id, customer_id, kind, amount, transaction_id, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), customerID, kind, amount, transactionID, actorID)
	if err != nil {
		return fmt.Errorf("insert %s ledger row: %w", kind, err)
	}
	return nil
}
