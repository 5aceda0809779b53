package service

import (
	"context"

	"ledgerbot/events"
	"ledgerbot/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.User, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByDiscordIDForUpdate(ctx context.Context, discordID int64) (*models.User, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, discordID int64, username string) (*models.User, error) {
	args := m.Called(ctx, discordID, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SetReferrer(ctx context.Context, discordID int64, referrerID int64) (bool, error) {
	args := m.Called(ctx, discordID, referrerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) MarkReferralPaid(ctx context.Context, discordID int64) (bool, error) {
	args := m.Called(ctx, discordID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) SetMembershipVerified(ctx context.Context, discordID int64, verified bool) error {
	args := m.Called(ctx, discordID, verified)
	return args.Error(0)
}

func (m *MockUserRepository) SetBanned(ctx context.Context, discordID int64, banned bool) error {
	args := m.Called(ctx, discordID, banned)
	return args.Error(0)
}

func (m *MockUserRepository) AddPoints(ctx context.Context, discordID int64, amount int64) (int64, error) {
	args := m.Called(ctx, discordID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) DeductPoints(ctx context.Context, discordID int64, amount int64) (int64, error) {
	args := m.Called(ctx, discordID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) CountReferrals(ctx context.Context, referrerID int64) (int64, int64, error) {
	args := m.Called(ctx, referrerID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// MockRewardRepository is a mock implementation of RewardRepository
type MockRewardRepository struct {
	mock.Mock
}

func (m *MockRewardRepository) Create(ctx context.Context, reward *models.RewardDefinition) error {
	args := m.Called(ctx, reward)
	return args.Error(0)
}

func (m *MockRewardRepository) GetByID(ctx context.Context, id int64) (*models.RewardDefinition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RewardDefinition), args.Error(1)
}

func (m *MockRewardRepository) GetByName(ctx context.Context, name string) (*models.RewardDefinition, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RewardDefinition), args.Error(1)
}

func (m *MockRewardRepository) Update(ctx context.Context, reward *models.RewardDefinition) error {
	args := m.Called(ctx, reward)
	return args.Error(0)
}

func (m *MockRewardRepository) ListActive(ctx context.Context) ([]*models.RewardDefinition, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RewardDefinition), args.Error(1)
}

// MockInventoryRepository is a mock implementation of InventoryRepository
type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) AddItems(ctx context.Context, rewardID int64, payloads []string) (int64, error) {
	args := m.Called(ctx, rewardID, payloads)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInventoryRepository) ReserveNext(ctx context.Context, rewardID int64, discordID int64) (*models.InventoryItem, error) {
	args := m.Called(ctx, rewardID, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepository) CountAvailable(ctx context.Context, rewardID int64) (int64, error) {
	args := m.Called(ctx, rewardID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInventoryRepository) StockCounts(ctx context.Context) ([]models.StockCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StockCount), args.Error(1)
}

// MockReceiptRepository is a mock implementation of ReceiptRepository
type MockReceiptRepository struct {
	mock.Mock
}

func (m *MockReceiptRepository) Create(ctx context.Context, receipt *models.PurchaseReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *MockReceiptRepository) GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.PurchaseReceipt, error) {
	args := m.Called(ctx, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PurchaseReceipt), args.Error(1)
}

func (m *MockReceiptRepository) CountByReward(ctx context.Context, rewardID int64) (int64, error) {
	args := m.Called(ctx, rewardID)
	return args.Get(0).(int64), args.Error(1)
}

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Setting), args.Error(1)
}

func (m *MockSettingsRepository) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockSettingsRepository) InsertIfAbsent(ctx context.Context, key, value string) (bool, error) {
	args := m.Called(ctx, key, value)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettingsRepository) GetAll(ctx context.Context) ([]*models.Setting, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Setting), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	Published []events.Event
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Published = append(m.Published, event)
}

// OfType returns the published events with the given type
func (m *MockEventPublisher) OfType(eventType events.EventType) []events.Event {
	var matched []events.Event
	for _, e := range m.Published {
		if e.Type() == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

// MockUnitOfWork is a mock implementation of UnitOfWork.
// Repositories are plain fields so tests only wire what they use.
type MockUnitOfWork struct {
	mock.Mock
	userRepo           UserRepository
	rewardRepo         RewardRepository
	inventoryRepo      InventoryRepository
	receiptRepo        ReceiptRepository
	settingsRepo       SettingsRepository
	balanceHistoryRepo BalanceHistoryRepository
	eventBus           EventPublisher
}

// SetRepositories wires the core repositories and the event publisher
func (m *MockUnitOfWork) SetRepositories(userRepo UserRepository, balanceHistoryRepo BalanceHistoryRepository, eventBus EventPublisher) {
	m.userRepo = userRepo
	m.balanceHistoryRepo = balanceHistoryRepo
	m.eventBus = eventBus
}

// SetCatalogRepositories wires the reward, inventory and receipt repositories
func (m *MockUnitOfWork) SetCatalogRepositories(rewardRepo RewardRepository, inventoryRepo InventoryRepository, receiptRepo ReceiptRepository) {
	m.rewardRepo = rewardRepo
	m.inventoryRepo = inventoryRepo
	m.receiptRepo = receiptRepo
}

func (m *MockUnitOfWork) SetSettingsRepository(settingsRepo SettingsRepository) {
	m.settingsRepo = settingsRepo
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository                     { return m.userRepo }
func (m *MockUnitOfWork) RewardRepository() RewardRepository                 { return m.rewardRepo }
func (m *MockUnitOfWork) InventoryRepository() InventoryRepository           { return m.inventoryRepo }
func (m *MockUnitOfWork) ReceiptRepository() ReceiptRepository               { return m.receiptRepo }
func (m *MockUnitOfWork) SettingsRepository() SettingsRepository             { return m.settingsRepo }
func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository { return m.balanceHistoryRepo }
func (m *MockUnitOfWork) EventBus() EventPublisher                           { return m.eventBus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockMembershipChecker is a mock implementation of MembershipChecker
type MockMembershipChecker struct {
	mock.Mock
}

func (m *MockMembershipChecker) IsMember(ctx context.Context, channelID string, discordID int64) (models.MembershipStatus, error) {
	args := m.Called(ctx, channelID, discordID)
	return args.Get(0).(models.MembershipStatus), args.Error(1)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, discordID int64, message string) error {
	args := m.Called(ctx, discordID, message)
	return args.Error(0)
}

// MockSettingsService is a mock implementation of SettingsService
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockSettingsService) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockSettingsService) EnsureDefaults(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSettingsService) All(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockSettingsService) RequiredChannels(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSettingsService) SetRequiredChannels(ctx context.Context, channels []string) error {
	args := m.Called(ctx, channels)
	return args.Error(0)
}

func (m *MockSettingsService) ReferralReward(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSettingsService) SetReferralReward(ctx context.Context, amount int64) error {
	args := m.Called(ctx, amount)
	return args.Error(0)
}

// MockMembershipGate is a mock implementation of MembershipGate
type MockMembershipGate struct {
	mock.Mock
}

func (m *MockMembershipGate) Check(ctx context.Context, discordID int64) (*models.MembershipDecision, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MembershipDecision), args.Error(1)
}

func (m *MockMembershipGate) Verify(ctx context.Context, discordID int64) (*models.MembershipDecision, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MembershipDecision), args.Error(1)
}

func (m *MockMembershipGate) Require(ctx context.Context, user *models.User) (*models.MembershipDecision, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MembershipDecision), args.Error(1)
}
