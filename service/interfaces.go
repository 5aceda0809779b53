package service

import (
	"context"

	"ledgerbot/events"
	"ledgerbot/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByDiscordID retrieves a user by their Discord ID, nil if absent
	GetByDiscordID(ctx context.Context, discordID int64) (*models.User, error)

	// GetByDiscordIDForUpdate retrieves a user and locks the row until the transaction ends
	GetByDiscordIDForUpdate(ctx context.Context, discordID int64) (*models.User, error)

	// Create inserts a user with a zero balance; an existing row is returned unchanged
	Create(ctx context.Context, discordID int64, username string) (*models.User, error)

	// SetReferrer binds a referrer if none is recorded yet, reporting whether it did
	SetReferrer(ctx context.Context, discordID int64, referrerID int64) (bool, error)

	// MarkReferralPaid flips the payout flag false->true, reporting whether it did
	MarkReferralPaid(ctx context.Context, discordID int64) (bool, error)

	// SetMembershipVerified records the last membership gate outcome
	SetMembershipVerified(ctx context.Context, discordID int64, verified bool) error

	// SetBanned sets or clears the banned flag
	SetBanned(ctx context.Context, discordID int64, banned bool) error

	// AddPoints credits points and returns the new balance
	AddPoints(ctx context.Context, discordID int64, amount int64) (int64, error)

	// DeductPoints debits points, failing with ErrInsufficientPoints rather than going negative
	DeductPoints(ctx context.Context, discordID int64, amount int64) (int64, error)

	// CountReferrals returns paid and pending referral counts for a referrer
	CountReferrals(ctx context.Context, referrerID int64) (paid int64, pending int64, err error)
}

// RewardRepository defines the interface for the reward catalog
type RewardRepository interface {
	// Create inserts a reward definition, filling ID and timestamps
	Create(ctx context.Context, reward *models.RewardDefinition) error

	// GetByID retrieves a reward by id, nil if absent
	GetByID(ctx context.Context, id int64) (*models.RewardDefinition, error)

	// GetByName retrieves a reward by its unique name, nil if absent
	GetByName(ctx context.Context, name string) (*models.RewardDefinition, error)

	// Update persists cost, discount and retired flag
	Update(ctx context.Context, reward *models.RewardDefinition) error

	// ListActive returns non-retired rewards ordered by cost
	ListActive(ctx context.Context) ([]*models.RewardDefinition, error)
}

// InventoryRepository defines the interface for reward inventory
type InventoryRepository interface {
	// AddItems bulk inserts unconsumed units for a reward and returns how many were stored
	AddItems(ctx context.Context, rewardID int64, payloads []string) (int64, error)

	// ReserveNext marks the lowest-id free unit consumed by the user, nil if none is free
	ReserveNext(ctx context.Context, rewardID int64, discordID int64) (*models.InventoryItem, error)

	// CountAvailable returns the number of unconsumed units for a reward
	CountAvailable(ctx context.Context, rewardID int64) (int64, error)

	// StockCounts returns available and consumed counts for every reward with inventory
	StockCounts(ctx context.Context) ([]models.StockCount, error)
}

// ReceiptRepository defines the interface for the append-only purchase log
type ReceiptRepository interface {
	// Create appends a receipt, filling ID, Reference and CreatedAt
	Create(ctx context.Context, receipt *models.PurchaseReceipt) error

	// GetByUser returns the most recent receipts for a user
	GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.PurchaseReceipt, error)

	// CountByReward returns how many receipts reference a reward
	CountByReward(ctx context.Context, rewardID int64) (int64, error)
}

// SettingsRepository defines the interface for key/value settings
type SettingsRepository interface {
	// Get returns a setting, nil if absent
	Get(ctx context.Context, key string) (*models.Setting, error)

	// Set upserts a setting, last write wins
	Set(ctx context.Context, key, value string) error

	// InsertIfAbsent stores a value only when the key is missing, reporting whether it did
	InsertIfAbsent(ctx context.Context, key, value string) (bool, error)

	// GetAll returns every stored setting ordered by key
	GetAll(ctx context.Context) ([]*models.Setting, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByUser returns balance history for a specific user
	GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.BalanceHistory, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and releases pending events
	Commit() error

	// Rollback rolls back the transaction; a no-op after Commit
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	RewardRepository() RewardRepository
	InventoryRepository() InventoryRepository
	ReceiptRepository() ReceiptRepository
	SettingsRepository() SettingsRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// MembershipChecker asks the messaging platform whether a user belongs to a channel.
// Implementations must honor ctx cancellation.
type MembershipChecker interface {
	IsMember(ctx context.Context, channelID string, discordID int64) (models.MembershipStatus, error)
}

// Notifier delivers a direct message to a user
type Notifier interface {
	Notify(ctx context.Context, discordID int64, message string) error
}

// SettingsService is the process-wide settings registry
type SettingsService interface {
	// Get returns the stored value or the documented default for the key
	Get(ctx context.Context, key string) (string, error)

	// Set validates and stores a value
	Set(ctx context.Context, key, value string) error

	// EnsureDefaults materializes missing defaults
	EnsureDefaults(ctx context.Context) error

	// All returns every known key with its effective value
	All(ctx context.Context) (map[string]string, error)

	RequiredChannels(ctx context.Context) ([]string, error)
	SetRequiredChannels(ctx context.Context, channels []string) error
	ReferralReward(ctx context.Context) (int64, error)
	SetReferralReward(ctx context.Context, amount int64) error
}

// MembershipGate decides whether a user satisfies the channel membership requirements
type MembershipGate interface {
	// Check probes every required channel live; unknown answers count as not joined
	Check(ctx context.Context, discordID int64) (*models.MembershipDecision, error)

	// Verify runs Check and records the outcome on the user
	Verify(ctx context.Context, discordID int64) (*models.MembershipDecision, error)

	// Require trusts a true cached flag and otherwise runs Verify
	Require(ctx context.Context, user *models.User) (*models.MembershipDecision, error)
}

// ReferralService binds referrers and settles referral payouts
type ReferralService interface {
	// AttachReferrer records a referrer once; self referral and rebinding are no-ops
	AttachReferrer(ctx context.Context, discordID, referrerCandidate int64) (bool, error)

	// SettlePayoutIfEligible credits the referrer at most once, after verified membership
	SettlePayoutIfEligible(ctx context.Context, discordID int64) (bool, error)

	// VerifyAndSettle runs the membership gate and settles the payout when allowed
	VerifyAndSettle(ctx context.Context, discordID int64) (*VerificationResult, error)

	// ReferralInfo returns the current reward per referral and the user's referral counts
	ReferralInfo(ctx context.Context, discordID int64) (*models.ReferralInfo, error)
}

// RedemptionService exchanges points for inventory
type RedemptionService interface {
	// Redeem spends points on one unit of a reward atomically
	Redeem(ctx context.Context, discordID, rewardID int64) (*models.RedemptionResult, error)

	// ListRewards returns the active catalog with effective prices and stock
	ListRewards(ctx context.Context) ([]*models.CatalogEntry, error)

	// StockCounts returns inventory counts per reward
	StockCounts(ctx context.Context) ([]models.StockCount, error)

	// ListReceipts returns a user's most recent purchases
	ListReceipts(ctx context.Context, discordID int64, limit int) ([]*models.PurchaseReceipt, error)
}

// AdminService exposes administrator operations
type AdminService interface {
	// Authorize fails with ErrNotAuthorized unless the actor is an administrator
	Authorize(actorID int64) error

	CreateReward(ctx context.Context, name string, cost int64, discountPercent int) (*models.RewardDefinition, error)
	UpdateReward(ctx context.Context, rewardID int64, cost int64, discountPercent int) (*models.RewardDefinition, error)
	RetireReward(ctx context.Context, rewardID int64) error
	FindReward(ctx context.Context, name string) (*models.RewardDefinition, error)
	AddInventory(ctx context.Context, rewardID int64, payloads []string) (int64, error)
	SetSetting(ctx context.Context, key, value string) error
	AdjustBalance(ctx context.Context, discordID int64, delta int64) (int64, error)
	SetBanned(ctx context.Context, discordID int64, banned bool) error
}

// UserService handles user onboarding and lookups
type UserService interface {
	// RegisterContact returns the user, creating it on first contact
	RegisterContact(ctx context.Context, discordID int64, username string) (*models.User, bool, error)

	// GetUser returns an existing user or ErrUserNotFound
	GetUser(ctx context.Context, discordID int64) (*models.User, error)
}
