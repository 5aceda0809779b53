package service

import (
	"testing"

	"ledgerbot/events"
	"ledgerbot/models"

	"github.com/stretchr/testify/mock"
)

// Test IDs
const (
	TestUserID      = 111111
	TestReferrerID  = 222222
	TestOtherUserID = 333333
	TestAdminID     = 999999
	TestRewardID    = 7
)

// TestMocks holds a unit of work wired to mock repositories
type TestMocks struct {
	Factory            *MockUnitOfWorkFactory
	UoW                *MockUnitOfWork
	UserRepo           *MockUserRepository
	RewardRepo         *MockRewardRepository
	InventoryRepo      *MockInventoryRepository
	ReceiptRepo        *MockReceiptRepository
	SettingsRepo       *MockSettingsRepository
	BalanceHistoryRepo *MockBalanceHistoryRepository
	EventPublisher     *MockEventPublisher
}

// NewTestMocks creates mocks where every Create returns the same unit of work.
// Begin and Rollback always succeed; Commit must be expected explicitly.
func NewTestMocks() *TestMocks {
	m := &TestMocks{
		Factory:            new(MockUnitOfWorkFactory),
		UoW:                new(MockUnitOfWork),
		UserRepo:           new(MockUserRepository),
		RewardRepo:         new(MockRewardRepository),
		InventoryRepo:      new(MockInventoryRepository),
		ReceiptRepo:        new(MockReceiptRepository),
		SettingsRepo:       new(MockSettingsRepository),
		BalanceHistoryRepo: new(MockBalanceHistoryRepository),
		EventPublisher:     new(MockEventPublisher),
	}

	m.UoW.SetRepositories(m.UserRepo, m.BalanceHistoryRepo, m.EventPublisher)
	m.UoW.SetCatalogRepositories(m.RewardRepo, m.InventoryRepo, m.ReceiptRepo)
	m.UoW.SetSettingsRepository(m.SettingsRepo)

	m.Factory.On("Create").Return(m.UoW).Maybe()
	m.UoW.On("Begin", mock.Anything).Return(nil).Maybe()
	m.UoW.On("Rollback").Return(nil).Maybe()

	return m
}

// ExpectCommit expects the unit of work to commit successfully
func (m *TestMocks) ExpectCommit() {
	m.UoW.On("Commit").Return(nil)
}

// AssertAllExpectations asserts all mock expectations
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.Factory.AssertExpectations(t)
	m.UoW.AssertExpectations(t)
	m.UserRepo.AssertExpectations(t)
	m.RewardRepo.AssertExpectations(t)
	m.InventoryRepo.AssertExpectations(t)
	m.ReceiptRepo.AssertExpectations(t)
	m.SettingsRepo.AssertExpectations(t)
	m.BalanceHistoryRepo.AssertExpectations(t)
}

// AssertNoCommit asserts the unit of work never committed
func (m *TestMocks) AssertNoCommit(t *testing.T) {
	m.UoW.AssertNotCalled(t, "Commit")
}

func testUser(discordID int64, points int64) *models.User {
	return &models.User{
		DiscordID: discordID,
		Username:  "user",
		Points:    points,
	}
}

func testReward(cost int64, discount int) *models.RewardDefinition {
	return &models.RewardDefinition{
		ID:              TestRewardID,
		Name:            "Premium",
		Cost:            cost,
		DiscountPercent: discount,
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}

func eventTypes(published []events.Event) []events.EventType {
	types := make([]events.EventType, 0, len(published))
	for _, e := range published {
		types = append(types, e.Type())
	}
	return types
}
