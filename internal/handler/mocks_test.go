package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/loyalty-pos/internal/middleware"
	"github.com/fairyhunter13/loyalty-pos/internal/model"
)

// mockTransactionService is a mock implementation of TransactionServiceInterface.
type mockTransactionService struct {
	createFn func(ctx context.Context, req *model.CreateTransactionRequest, actorID string) (*model.TransactionResult, error)
	topUpFn  func(ctx context.Context, req *model.CreateTransactionRequest, actorID string) (*model.TopUpResult, error)
	listFn   func(ctx context.Context, customerID string) ([]model.TransactionView, error)
	wipeFn   func(ctx context.Context) (int64, error)
}

func (m *mockTransactionService) Create(ctx context.Context, req *model.CreateTransactionRequest, actorID string) (*model.TransactionResult, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req, actorID)
	}
	return &model.TransactionResult{Status: model.TransactionStatusSuccess, NewRewards: []model.Reward{}}, nil
}

func (m *mockTransactionService) TopUp(ctx context.Context, req *model.CreateTransactionRequest, actorID string) (*model.TopUpResult, error) {
	if m.topUpFn != nil {
		return m.topUpFn(ctx, req, actorID)
	}
	return &model.TopUpResult{Status: model.TransactionStatusSuccess}, nil
}

func (m *mockTransactionService) List(ctx context.Context, customerID string) ([]model.TransactionView, error) {
	if m.listFn != nil {
		return m.listFn(ctx, customerID)
	}
	return []model.TransactionView{}, nil
}

func (m *mockTransactionService) Wipe(ctx context.Context) (int64, error) {
	if m.wipeFn != nil {
		return m.wipeFn(ctx)
	}
	return 0, nil
}

// mockCampaignService is a mock implementation of CampaignServiceInterface.
type mockCampaignService struct {
	listFn   func(ctx context.Context, deleted bool) ([]model.Campaign, error)
	createFn func(ctx context.Context, req *model.CampaignRequest) (*model.Campaign, error)
	updateFn func(ctx context.Context, id string, req *model.CampaignRequest) (*model.Campaign, error)
	deleteFn func(ctx context.Context, id string, hard bool) error
}

func (m *mockCampaignService) List(ctx context.Context, deleted bool) ([]model.Campaign, error) {
	if m.listFn != nil {
		return m.listFn(ctx, deleted)
	}
	return []model.Campaign{}, nil
}

func (m *mockCampaignService) Create(ctx context.Context, req *model.CampaignRequest) (*model.Campaign, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return &model.Campaign{Name: req.Name, Type: req.Type}, nil
}

func (m *mockCampaignService) Update(ctx context.Context, id string, req *model.CampaignRequest) (*model.Campaign, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return &model.Campaign{Name: req.Name, Type: req.Type}, nil
}

func (m *mockCampaignService) Delete(ctx context.Context, id string, hard bool) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, hard)
	}
	return nil
}

// mockScanService is a mock implementation of ScanServiceInterface.
type mockScanService struct {
	scanFn func(ctx context.Context, customerID string) (*model.ScanResult, error)
}

func (m *mockScanService) Scan(ctx context.Context, customerID string) (*model.ScanResult, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, customerID)
	}
	return &model.ScanResult{}, nil
}

var (
	cashierSession = &middleware.Session{ID: "cashier-1", Role: middleware.RoleCashier}
	adminSession   = &middleware.Session{ID: "admin-1", Role: middleware.RoleAdmin}
)

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}
