package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/loyalty-pos/internal/model"
	"github.com/fairyhunter13/loyalty-pos/pkg/database"
)

// CustomerRepository reads loyalty customers.
type CustomerRepository interface {
	// GetByID returns ErrCustomerNotFound when no customer has id.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
}

// DiscountRepository reads instant discounts.
type DiscountRepository interface {
	// GetByID returns ErrDiscountNotFound when no discount has id.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Discount, error)
}

// CampaignRepository defines the campaign data access used by the engine and the admin API.
type CampaignRepository interface {
	// GetByID returns ErrCampaignNotFound when no campaign has id.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error)
	// ListActiveByType returns active, non-deleted campaigns of one type.
	ListActiveByType(ctx context.Context, q database.TxQuerier, campaignType model.CampaignType) ([]model.Campaign, error)
	// ListAvailable returns active, non-deleted campaigns offered to customerType.
	ListAvailable(ctx context.Context, customerType string) ([]model.Campaign, error)
	List(ctx context.Context, deleted bool) ([]model.Campaign, error)
	Insert(ctx context.Context, c *model.Campaign) error
	Update(ctx context.Context, c *model.Campaign) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CouponRepository defines the customer coupon data access used by the engine.
// Methods taking a database.TxQuerier must run inside the caller's transaction.
type CouponRepository interface {
	// GetByID returns nil, nil when the coupon does not exist. The owning campaign is joined in.
	GetByID(ctx context.Context, q database.TxQuerier, id uuid.UUID) (*model.CustomerCoupon, error)
	// GetForUpdate is GetByID with a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.CustomerCoupon, error)
	// MarkUsed moves an ACTIVE coupon to USED and reports whether a row changed.
	MarkUsed(ctx context.Context, tx database.TxQuerier, id uuid.UUID, at time.Time) (bool, error)
	MarkExpired(ctx context.Context, tx database.TxQuerier, id uuid.UUID) error
	InsertBatch(ctx context.Context, tx database.TxQuerier, coupons []model.CustomerCoupon) error
	HasActiveForCampaign(ctx context.Context, tx database.TxQuerier, customerID, campaignID uuid.UUID) (bool, error)
	// ListBundleForUpdate locks and returns every coupon sharing bundleID.
	ListBundleForUpdate(ctx context.Context, tx database.TxQuerier, bundleID uuid.UUID) ([]model.CustomerCoupon, error)
	// ListBySourceTransactionForUpdate locks and returns a customer's coupons minted by one transaction.
	ListBySourceTransactionForUpdate(ctx context.Context, tx database.TxQuerier, customerID, sourceTransactionID uuid.UUID) ([]model.CustomerCoupon, error)
	// ReduceBonus sets a bonus coupon's value and merges stamps into its metadata.
	ReduceBonus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, value decimal.Decimal, stamps map[string]any) error
	// ConsumeBonus zeroes a bonus coupon, marks it USED and merges stamps into its metadata.
	ConsumeBonus(ctx context.Context, tx database.TxQuerier, id uuid.UUID, at time.Time, stamps map[string]any) error
	// ConsumeCoupons marks ACTIVE coupons USED and merges stamps into their metadata.
	ConsumeCoupons(ctx context.Context, tx database.TxQuerier, ids []uuid.UUID, at time.Time, stamps map[string]any) (int64, error)
	ListActiveByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.CustomerCoupon, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// ProgressRepository defines stamp-card counter access.
type ProgressRepository interface {
	// Increment bumps the counter for the pair, creating it at 1, and returns the new count.
	Increment(ctx context.Context, tx database.TxQuerier, customerID, campaignID uuid.UUID, target int) (int, error)
	Reset(ctx context.Context, tx database.TxQuerier, customerID, campaignID uuid.UUID) error
}

// TransactionRepository defines transaction persistence.
type TransactionRepository interface {
	Insert(ctx context.Context, tx database.TxQuerier, t *model.Transaction) error
	UpdateMetadata(ctx context.Context, tx database.TxQuerier, id uuid.UUID, metadata model.TransactionMetadata) error
	// ListRecent returns the newest transactions first, optionally for one customer.
	ListRecent(ctx context.Context, customerID *uuid.UUID, limit int) ([]model.TransactionView, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// Wallet moves stored customer balance.
type Wallet interface {
	TopUp(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal, actorID string) (decimal.Decimal, error)
	GetBalance(ctx context.Context, q database.TxQuerier, customerID uuid.UUID) (decimal.Decimal, error)
	PayWithWallet(ctx context.Context, q database.TxQuerier, customerID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID, actorID string) (decimal.Decimal, error)
}

