package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fairyhunter13/loyalty-pos/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	database.TxQuerier
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
