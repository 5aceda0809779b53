package service

import (
	"context"

	"ledgerbot/models"

	"github.com/stretchr/testify/mock"
)

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) RegisterContact(ctx context.Context, discordID int64, username string) (*models.User, bool, error) {
	args := m.Called(ctx, discordID, username)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockUserService) GetUser(ctx context.Context, discordID int64) (*models.User, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockReferralService is a mock implementation of ReferralService
type MockReferralService struct {
	mock.Mock
}

func (m *MockReferralService) AttachReferrer(ctx context.Context, discordID, referrerCandidate int64) (bool, error) {
	args := m.Called(ctx, discordID, referrerCandidate)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralService) SettlePayoutIfEligible(ctx context.Context, discordID int64) (bool, error) {
	args := m.Called(ctx, discordID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralService) VerifyAndSettle(ctx context.Context, discordID int64) (*VerificationResult, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VerificationResult), args.Error(1)
}

func (m *MockReferralService) ReferralInfo(ctx context.Context, discordID int64) (*models.ReferralInfo, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralInfo), args.Error(1)
}

// MockRedemptionService is a mock implementation of RedemptionService
type MockRedemptionService struct {
	mock.Mock
}

func (m *MockRedemptionService) Redeem(ctx context.Context, discordID, rewardID int64) (*models.RedemptionResult, error) {
	args := m.Called(ctx, discordID, rewardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RedemptionResult), args.Error(1)
}

func (m *MockRedemptionService) ListRewards(ctx context.Context) ([]*models.CatalogEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CatalogEntry), args.Error(1)
}

func (m *MockRedemptionService) StockCounts(ctx context.Context) ([]models.StockCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StockCount), args.Error(1)
}

func (m *MockRedemptionService) ListReceipts(ctx context.Context, discordID int64, limit int) ([]*models.PurchaseReceipt, error) {
	args := m.Called(ctx, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PurchaseReceipt), args.Error(1)
}

// MockAdminService is a mock implementation of AdminService
type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) Authorize(actorID int64) error {
	args := m.Called(actorID)
	return args.Error(0)
}

func (m *MockAdminService) CreateReward(ctx context.Context, name string, cost int64, discountPercent int) (*models.RewardDefinition, error) {
	args := m.Called(ctx, name, cost, discountPercent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RewardDefinition), args.Error(1)
}

func (m *MockAdminService) UpdateReward(ctx context.Context, rewardID int64, cost int64, discountPercent int) (*models.RewardDefinition, error) {
	args := m.Called(ctx, rewardID, cost, discountPercent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RewardDefinition), args.Error(1)
}

func (m *MockAdminService) RetireReward(ctx context.Context, rewardID int64) error {
	args := m.Called(ctx, rewardID)
	return args.Error(0)
}

func (m *MockAdminService) FindReward(ctx context.Context, name string) (*models.RewardDefinition, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RewardDefinition), args.Error(1)
}

func (m *MockAdminService) AddInventory(ctx context.Context, rewardID int64, payloads []string) (int64, error) {
	args := m.Called(ctx, rewardID, payloads)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAdminService) SetSetting(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockAdminService) AdjustBalance(ctx context.Context, discordID int64, delta int64) (int64, error) {
	args := m.Called(ctx, discordID, delta)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAdminService) SetBanned(ctx context.Context, discordID int64, banned bool) error {
	args := m.Called(ctx, discordID, banned)
	return args.Error(0)
}
