package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer settles a transaction.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentWallet PaymentMethod = "WALLET"
)

// TransactionStatusSuccess is the only persisted transaction status.
const TransactionStatusSuccess = "success"

// TransactionMetadata is the display metadata stored with a transaction.
type TransactionMetadata struct {
	DiscountName       *string         `json:"discount_name"`
	ManualDiscountType string          `json:"manual_discount_type"`
	ManualDiscount     decimal.Decimal `json:"manual_discount"`
	CampaignName       string          `json:"campaign_name,omitempty"`
	CouponCount        int             `json:"coupon_count,omitempty"`
	BundleInfo         string          `json:"bundle_info,omitempty"`
}

// Transaction is the immutable record of a completed sale.
type Transaction struct {
	ID            uuid.UUID           `json:"id"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	CardID        *string             `json:"card_id"`
	DiscountID    *uuid.UUID          `json:"discount_id"`
	AmountBefore  decimal.Decimal     `json:"amount_before"`
	AmountAfter   decimal.Decimal     `json:"amount_after"`
	PaymentMethod PaymentMethod       `json:"payment_method"`
	Status        string              `json:"status"`
	Metadata      TransactionMetadata `json:"metadata"`
	CreatedAt     time.Time           `json:"created_at"`
}

// TransactionView is a listed transaction with display fields flattened out.
type TransactionView struct {
	Transaction
	CustomerName *string `json:"customer_name"`
	DiscountName *string `json:"discount_name"`
	CampaignName *string `json:"campaign_name"`
	CouponCount  int     `json:"coupon_count"`
	BundleInfo   *string `json:"bundle_info"`
}

// CreateTransactionRequest is the DTO for POST /api/transactions.
type CreateTransactionRequest struct {
	CustomerID         string           `json:"customer_id" validate:"required,notblank,notplaceholder,max=64"`
	CardID             string           `json:"card_id" validate:"max=255"`
	DiscountID         string           `json:"discount_id" validate:"omitempty,uuid"`
	CouponID           string           `json:"coupon_id" validate:"omitempty,uuid,excluded_with=DiscountID"`
	CampaignID         string           `json:"campaign_id" validate:"omitempty,uuid"`
	Amount             *decimal.Decimal `json:"amount" validate:"required"`
	ManualDiscount     decimal.Decimal  `json:"manual_discount"`
	ManualDiscountType string           `json:"manual_discount_type" validate:"omitempty,oneof=percentage fixed_amount"`
	PaymentMethod      PaymentMethod    `json:"payment_method" validate:"omitempty,oneof=CASH WALLET"`
	IsTopUp            bool             `json:"is_topup"`
}

// Reward describes one reward granted by a transaction.
type Reward struct {
	Name  string            `json:"name"`
	Type  string            `json:"type"`
	Parts []decimal.Decimal `json:"parts,omitempty"`
}

// TransactionResult is the success payload of POST /api/transactions.
type TransactionResult struct {
	Status          string          `json:"status"`
	TransactionID   uuid.UUID       `json:"transaction_id"`
	AmountAfter     decimal.Decimal `json:"amount_after"`
	NewRewards      []Reward        `json:"new_rewards"`
	UpdatedCustomer *Customer       `json:"updated_customer"`
}

// TopUpResult is the success payload of a wallet top-up.
type TopUpResult struct {
	Status          string          `json:"status"`
	Message         string          `json:"message"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	UpdatedCustomer *Customer       `json:"updated_customer"`
}
