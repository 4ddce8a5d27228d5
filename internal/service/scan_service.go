package service

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/loyalty-pos/internal/model"
)

// ScanService builds the terminal view shown after a card is read.
type ScanService struct {
	customers CustomerRepository
	coupons   CouponRepository
	campaigns CampaignRepository
}

// NewScanService creates a new ScanService.
func NewScanService(customers CustomerRepository, coupons CouponRepository, campaigns CampaignRepository) *ScanService {
	return &ScanService{customers: customers, coupons: coupons, campaigns: campaigns}
}

// Scan returns the customer with their ACTIVE coupons and the campaigns offered to them.
func (s *ScanService) Scan(ctx context.Context, customerID string) (*model.ScanResult, error) {
	id, err := parseCustomerID(customerID)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	quotas, err := s.coupons.ListActiveByCustomer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list active coupons: %w", err)
	}
	if quotas == nil {
		quotas = []model.CustomerCoupon{}
	}

	available, err := s.campaigns.ListAvailable(ctx, customer.Type)
	if err != nil {
		return nil, fmt.Errorf("list available campaigns: %w", err)
	}
	if available == nil {
		available = []model.Campaign{}
	}

	return &model.ScanResult{
		Customer:           customer,
		ActiveQuotas:       quotas,
		AvailableCampaigns: available,
	}, nil
}
