package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/loyalty-pos/internal/metrics"
	"github.com/fairyhunter13/loyalty-pos/internal/model"
	"github.com/fairyhunter13/loyalty-pos/internal/validator"
	"github.com/fairyhunter13/loyalty-pos/pkg/database"
)

// Stage is how far a transaction got before it completed or failed.
type Stage string

const (
	StageValidating       Stage = "validating"
	StageDiscountResolved Stage = "discount_resolved"
	StageWalletCharged    Stage = "wallet_charged"
	StagePersisted        Stage = "persisted"
	StageCouponSettled    Stage = "coupon_settled"
	StageRewardsEvaluated Stage = "rewards_evaluated"
	StageCompleted        Stage = "completed"
)

// RecentTransactionsLimit caps the transaction history listing.
const RecentTransactionsLimit = 50

// Repositories groups the stores the transaction service reads and writes.
type Repositories struct {
	Customers    CustomerRepository
	Discounts    DiscountRepository
	Campaigns    CampaignRepository
	Coupons      CouponRepository
	Progress     ProgressRepository
	Transactions TransactionRepository
}

// TransactionService records point-of-sale transactions and drives the reward engine.
type TransactionService struct {
	pool         database.TxBeginner
	customers    CustomerRepository
	discounts    DiscountRepository
	campaigns    CampaignRepository
	coupons      CouponRepository
	transactions TransactionRepository
	wallet       Wallet
	bundles      *BundleProtocol
	rewards      *RewardEngine
	now          func() time.Time
}

// NewTransactionService creates a new TransactionService.
func NewTransactionService(pool database.TxBeginner, repos Repositories, wallet Wallet) *TransactionService {
	return &TransactionService{
		pool:         pool,
		customers:    repos.Customers,
		discounts:    repos.Discounts,
		campaigns:    repos.Campaigns,
		coupons:      repos.Coupons,
		transactions: repos.Transactions,
		wallet:       wallet,
		bundles:      NewBundleProtocol(repos.Coupons),
		rewards:      NewRewardEngine(repos.Campaigns, repos.Coupons, repos.Progress, repos.Transactions),
		now:          time.Now,
	}
}

type transactionInput struct {
	customerID uuid.UUID
	cardID     *string
	discountID *uuid.UUID
	couponID   *uuid.UUID
	campaignID *uuid.UUID
	amount     decimal.Decimal
	manual     ManualDiscount
	method     model.PaymentMethod
}

// Create records a sale for the customer, redeeming at most one discount or
// coupon, charging the wallet when asked to, and granting campaign rewards.
//
// Everything up to and including an explicit bundle purchase commits in one
// database transaction. Auto-spend and stamp-card rewards run afterwards in
// their own transactions and never fail the sale.
func (s *TransactionService) Create(ctx context.Context, req *model.CreateTransactionRequest, actorID string) (*model.TransactionResult, error) {
	stage := StageValidating
	in, err := parseTransactionRequest(req)
	if err != nil {
		return nil, s.fail(stage, req.CustomerID, err)
	}
	logger := log.With().Str("customer_id", in.customerID.String()).Logger()

	customer, err := s.customers.GetByID(ctx, in.customerID)
	if err != nil {
		return nil, s.fail(stage, req.CustomerID, err)
	}

	var discount *model.Discount
	if in.discountID != nil {
		if discount, err = s.discounts.GetByID(ctx, *in.discountID); err != nil {
			return nil, s.fail(stage, req.CustomerID, err)
		}
	}

	campaign, err := s.bundleCampaign(ctx, in.campaignID, logger)
	if err != nil {
		return nil, s.fail(stage, req.CustomerID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, s.fail(stage, req.CustomerID, fmt.Errorf("begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var coupon *model.CustomerCoupon
	if in.couponID != nil {
		if coupon, err = s.lockCoupon(ctx, tx, *in.couponID); err != nil {
			return nil, s.fail(stage, req.CustomerID, err)
		}
	}

	if campaign != nil {
		if err := s.rewards.CheckOwnership(ctx, tx, customer.ID, campaign.ID); err != nil {
			return nil, s.fail(stage, req.CustomerID, err)
		}
	}

	now := s.now().UTC()
	res, err := ResolveDiscount(DiscountInput{
		Base:       in.amount,
		CustomerID: customer.ID,
		Source:     DiscountSource{Instant: discount, Coupon: coupon},
		Manual:     in.manual,
		Customer:   customer,
		Now:        now,
	})
	if errors.Is(err, ErrCouponExpired) {
		return nil, s.fail(stage, req.CustomerID, s.expireCoupon(ctx, tx, coupon, err))
	}
	if err != nil {
		return nil, s.fail(stage, req.CustomerID, err)
	}
	stage = StageDiscountResolved

	txnID := uuid.New()
	if in.method == model.PaymentWallet && res.Final.IsPositive() {
		if err := s.chargeWallet(ctx, tx, customer.ID, res.Final, txnID, actorID); err != nil {
			return nil, s.fail(stage, req.CustomerID, err)
		}
	}
	stage = StageWalletCharged

	txn := &model.Transaction{
		ID:            txnID,
		CustomerID:    customer.ID,
		CardID:        in.cardID,
		DiscountID:    in.discountID,
		AmountBefore:  in.amount.Round(2),
		AmountAfter:   res.Final,
		PaymentMethod: in.method,
		Status:        model.TransactionStatusSuccess,
		Metadata: model.TransactionMetadata{
			DiscountName:       res.Label,
			ManualDiscountType: in.manual.Type,
			ManualDiscount:     in.manual.Value,
		},
		CreatedAt: now,
	}
	if err := s.transactions.Insert(ctx, tx, txn); err != nil {
		return nil, s.fail(stage, req.CustomerID, err)
	}
	stage = StagePersisted

	if coupon != nil {
		ok, err := s.coupons.MarkUsed(ctx, tx, coupon.ID, now)
		if err != nil {
			return nil, s.fail(stage, req.CustomerID, err)
		}
		if !ok {
			return nil, s.fail(stage, req.CustomerID, fmt.Errorf("%w: coupon %s was redeemed concurrently", ErrInvalidCoupon, coupon.ID))
		}
		s.settleBundle(ctx, tx, coupon, logger)
	}
	stage = StageCouponSettled

	rewards := []model.Reward{}
	if campaign != nil {
		reward, err := s.rewards.PurchaseBundle(ctx, tx, campaign, txn)
		if err != nil {
			return nil, s.fail(stage, req.CustomerID, err)
		}
		rewards = append(rewards, reward)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, s.fail(stage, req.CustomerID, fmt.Errorf("commit transaction: %w", err))
	}

	rewards = append(rewards, s.evaluateRewards(ctx, in, txn, logger)...)

	updated, err := s.customers.GetByID(ctx, customer.ID)
	if err != nil {
		logger.Error().Err(err).Str("transaction_id", txnID.String()).Msg("failed to reload customer")
		updated = nil
	}
	stage = StageCompleted

	metrics.RecordTransaction(string(in.method), string(res.Branch))
	logger.Info().
		Str("transaction_id", txnID.String()).
		Str("amount_before", txn.AmountBefore.String()).
		Str("amount_after", res.Final.String()).
		Str("discount", string(res.Branch)).
		Int("rewards", len(rewards)).
		Str("stage", string(stage)).
		Msg("transaction completed")

	return &model.TransactionResult{
		Status:          model.TransactionStatusSuccess,
		TransactionID:   txnID,
		AmountAfter:     res.Final,
		NewRewards:      rewards,
		UpdatedCustomer: updated,
	}, nil
}

// TopUp adds amount to the customer's wallet.
func (s *TransactionService) TopUp(ctx context.Context, req *model.CreateTransactionRequest, actorID string) (*model.TopUpResult, error) {
	customerID, err := parseCustomerID(req.CustomerID)
	if err != nil {
		return nil, err
	}
	if req.Amount == nil || !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: top-up amount must be positive", ErrInvalidRequest)
	}

	balance, err := s.wallet.TopUp(ctx, customerID, req.Amount.Round(2), actorID)
	if err != nil {
		return nil, err
	}
	metrics.RecordTopUp()

	updated, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		log.Error().Err(err).Str("customer_id", customerID.String()).Msg("failed to reload customer after top-up")
		updated = nil
	}

	return &model.TopUpResult{
		Status:          model.TransactionStatusSuccess,
		Message:         "Wallet topped up",
		NewBalance:      balance,
		UpdatedCustomer: updated,
	}, nil
}

// List returns the latest transactions, optionally for one customer.
func (s *TransactionService) List(ctx context.Context, customerID string) ([]model.TransactionView, error) {
	var filter *uuid.UUID
	if strings.TrimSpace(customerID) != "" {
		id, err := parseCustomerID(customerID)
		if err != nil {
			return nil, err
		}
		filter = &id
	}

	views, err := s.transactions.ListRecent(ctx, filter, RecentTransactionsLimit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if views == nil {
		views = []model.TransactionView{}
	}
	return views, nil
}

// Wipe deletes the whole transaction history and returns how many rows went.
func (s *TransactionService) Wipe(ctx context.Context) (int64, error) {
	n, err := s.transactions.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("wipe transactions: %w", err)
	}
	log.Warn().Int64("rows", n).Msg("transaction history wiped")
	return n, nil
}

// bundleCampaign loads the campaign named by a purchase. Unknown, deleted and
// non-bundle campaigns are ignored.
func (s *TransactionService) bundleCampaign(ctx context.Context, id *uuid.UUID, logger zerolog.Logger) (*model.Campaign, error) {
	if id == nil {
		return nil, nil
	}

	c, err := s.campaigns.GetByID(ctx, *id)
	if errors.Is(err, ErrCampaignNotFound) {
		logger.Warn().Str("campaign_id", id.String()).Msg("purchased campaign not found, ignoring")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if c.Type != model.CampaignBundle || c.DeletedAt != nil {
		logger.Warn().Str("campaign_id", id.String()).Str("type", string(c.Type)).Msg("purchased campaign is not a live bundle, ignoring")
		return nil, nil
	}
	return c, nil
}

// lockCoupon row-locks the coupon being redeemed. Bundle coupons take the
// bundle advisory lock first so that every redemption in one bundle locks in
// the same order.
func (s *TransactionService) lockCoupon(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.CustomerCoupon, error) {
	c, err := s.coupons.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrInvalidCoupon
	}

	if c.BundleID != nil {
		if err := database.LockKey(ctx, tx, database.BundleLockKey(c.BundleID.String())); err != nil {
			return nil, err
		}
	}

	locked, err := s.coupons.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if locked == nil {
		return nil, ErrInvalidCoupon
	}
	return locked, nil
}

// expireCoupon persists the EXPIRED transition on its own and returns cause.
func (s *TransactionService) expireCoupon(ctx context.Context, tx pgx.Tx, coupon *model.CustomerCoupon, cause error) error {
	if err := s.coupons.MarkExpired(ctx, tx, coupon.ID); err != nil {
		return fmt.Errorf("mark coupon %s expired: %w", coupon.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit coupon expiry: %w", err)
	}
	metrics.RecordExpired(1)
	return cause
}

func (s *TransactionService) chargeWallet(ctx context.Context, tx database.TxQuerier, customerID uuid.UUID, amount decimal.Decimal, txnID uuid.UUID, actorID string) error {
	balance, err := s.wallet.GetBalance(ctx, tx, customerID)
	if err != nil {
		return fmt.Errorf("read wallet balance: %w", err)
	}
	if balance.LessThan(amount) {
		return fmt.Errorf("%w: balance %s, required %s", ErrInsufficientBalance, balance.StringFixed(2), amount.StringFixed(2))
	}
	if _, err := s.wallet.PayWithWallet(ctx, tx, customerID, amount, txnID, actorID); err != nil {
		return err
	}
	return nil
}

// settleBundle runs the bundle protocol inside a savepoint. A failure rolls
// back to the savepoint and is logged; the sale itself still commits.
func (s *TransactionService) settleBundle(ctx context.Context, tx pgx.Tx, coupon *model.CustomerCoupon, logger zerolog.Logger) {
	if coupon.BundleID == nil {
		return
	}

	err := database.WithTx(ctx, tx, func(sp pgx.Tx) error {
		return s.bundles.Settle(ctx, sp, coupon)
	})
	if err != nil {
		logger.Error().
			Err(err).
			Str("coupon_id", coupon.ID.String()).
			Str("bundle_id", coupon.BundleID.String()).
			Msg("bundle settlement failed")
	}
}

// evaluateRewards runs the auto-spend and stamp-card passes, each in its own
// transaction. Failures are logged and yield no rewards for that pass.
func (s *TransactionService) evaluateRewards(ctx context.Context, in transactionInput, txn *model.Transaction, logger zerolog.Logger) []model.Reward {
	var rewards []model.Reward

	var auto []model.Reward
	err := database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		auto, err = s.rewards.GrantAutoSpend(ctx, tx, txn.CustomerID, txn.ID, txn.AmountAfter)
		return err
	})
	if err != nil {
		logger.Error().Err(err).Str("stage", string(StageRewardsEvaluated)).Str("transaction_id", txn.ID.String()).Msg("auto-spend rewards failed")
	} else {
		rewards = append(rewards, auto...)
	}

	if in.campaignID != nil || in.couponID != nil {
		return rewards
	}

	var stamps []model.Reward
	err = database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		stamps, err = s.rewards.AdvanceStampCards(ctx, tx, txn.CustomerID, txn.ID, txn.AmountAfter)
		return err
	})
	if err != nil {
		logger.Error().Err(err).Str("stage", string(StageRewardsEvaluated)).Str("transaction_id", txn.ID.String()).Msg("stamp card rewards failed")
	} else {
		rewards = append(rewards, stamps...)
	}
	return rewards
}

// fail records the stage a transaction stopped at and returns err unchanged.
func (s *TransactionService) fail(stage Stage, customerID string, err error) error {
	metrics.RecordFailure(string(stage))

	event := log.Warn()
	if KindOf(err) == KindUnknown {
		event = log.Error()
	}
	event.Err(err).Str("stage", string(stage)).Str("customer_id", customerID).Msg("transaction failed")
	return err
}

func parseTransactionRequest(req *model.CreateTransactionRequest) (transactionInput, error) {
	var in transactionInput

	id, err := parseCustomerID(req.CustomerID)
	if err != nil {
		return in, err
	}
	in.customerID = id

	if req.Amount == nil {
		return in, fmt.Errorf("%w: amount is required", ErrInvalidRequest)
	}
	if req.Amount.IsNegative() {
		return in, fmt.Errorf("%w: amount must not be negative", ErrInvalidRequest)
	}
	in.amount = *req.Amount

	if !validator.IsPlaceholder(req.DiscountID) && !validator.IsPlaceholder(req.CouponID) {
		return in, fmt.Errorf("%w: discount_id and coupon_id are mutually exclusive", ErrInvalidRequest)
	}
	if in.discountID, err = optionalID("discount_id", req.DiscountID); err != nil {
		return in, err
	}
	if in.couponID, err = optionalID("coupon_id", req.CouponID); err != nil {
		return in, err
	}
	if in.campaignID, err = optionalID("campaign_id", req.CampaignID); err != nil {
		return in, err
	}

	if card := strings.TrimSpace(req.CardID); card != "" {
		in.cardID = &card
	}

	if req.ManualDiscount.IsNegative() {
		return in, fmt.Errorf("%w: manual_discount must not be negative", ErrInvalidRequest)
	}
	in.manual = ManualDiscount{Type: req.ManualDiscountType, Value: req.ManualDiscount}
	switch in.manual.Type {
	case "":
		in.manual.Type = model.DiscountTypePercentage
	case model.DiscountTypePercentage, model.DiscountTypeFixedAmount:
	default:
		return in, fmt.Errorf("%w: unknown manual_discount_type %q", ErrInvalidRequest, req.ManualDiscountType)
	}

	switch req.PaymentMethod {
	case "":
		in.method = model.PaymentCash
	case model.PaymentCash, model.PaymentWallet:
		in.method = req.PaymentMethod
	default:
		return in, fmt.Errorf("%w: unknown payment_method %q", ErrInvalidRequest, req.PaymentMethod)
	}

	return in, nil
}

func parseCustomerID(raw string) (uuid.UUID, error) {
	if validator.IsPlaceholder(raw) {
		return uuid.Nil, ErrMissingCustomerID
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: customer_id is not a valid id", ErrInvalidRequest)
	}
	return id, nil
}

func optionalID(field, raw string) (*uuid.UUID, error) {
	if validator.IsPlaceholder(raw) {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a valid id", ErrInvalidRequest, field)
	}
	return &id, nil
}
