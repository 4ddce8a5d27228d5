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

// DiscountRepository provides read access to instant discounts.
type DiscountRepository struct {
	pool PoolInterface
}

// NewDiscountRepository creates a new DiscountRepository with the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// NewDiscountRepositoryWithPool creates a new DiscountRepository with a custom pool interface.
func NewDiscountRepositoryWithPool(pool PoolInterface) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// GetByID retrieves an instant discount.
// Returns service.ErrDiscountNotFound if the discount doesn't exist.
func (r *DiscountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Discount, error) {
	var d model.Discount
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, type, value, created_at FROM discounts WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Type, &d.Value, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrDiscountNotFound
		}
		return nil, fmt.Errorf("get discount %s: %w", id, err)
	}
	return &d, nil
}
