package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/loyalty-pos/internal/model"
	"github.com/fairyhunter13/loyalty-pos/internal/service"
)

// CustomerRepository provides read access to loyalty customers.
type CustomerRepository struct {
	pool PoolInterface
}

// NewCustomerRepository creates a new CustomerRepository with the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// NewCustomerRepositoryWithPool creates a new CustomerRepository with a custom pool interface.
// This is primarily used for testing.
func NewCustomerRepositoryWithPool(pool PoolInterface) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// GetByID retrieves a customer.
// Returns service.ErrCustomerNotFound if the customer doesn't exist.
func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var c model.Customer
	err := r.pool.QueryRow(ctx,
		`SELECT id, full_name, type, discount_percent, balance, created_at FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.FullName, &c.Type, &c.DiscountPercent, &c.Balance, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer %s: %w", id, err)
	}
	return &c, nil
}
