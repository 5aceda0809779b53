package service

import (
	"context"
	"fmt"
	"strings"

	"ledgerbot/models"

	log "github.com/sirupsen/logrus"
)

const maxRewardNameLength = 100

// adminService implements the AdminService interface
type adminService struct {
	uowFactory UnitOfWorkFactory
	settings   SettingsService
	adminIDs   map[int64]bool
}

// NewAdminService creates the administrator surface; adminIDs lists who may call it
func NewAdminService(uowFactory UnitOfWorkFactory, settings SettingsService, adminIDs []int64) AdminService {
	ids := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = true
	}
	return &adminService{
		uowFactory: uowFactory,
		settings:   settings,
		adminIDs:   ids,
	}
}

func (s *adminService) Authorize(actorID int64) error {
	if !s.adminIDs[actorID] {
		log.WithField("actorID", actorID).Warn("Unauthorized admin attempt")
		return ErrNotAuthorized
	}
	return nil
}

// CreateReward adds a reward to the catalog. Names are unique.
func (s *adminService) CreateReward(ctx context.Context, name string, cost int64, discountPercent int) (*models.RewardDefinition, error) {
	name = strings.TrimSpace(name)
	if err := validateReward(name, cost, discountPercent); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	reward := &models.RewardDefinition{
		Name:            name,
		Cost:            cost,
		DiscountPercent: discountPercent,
	}
	if err := uow.RewardRepository().Create(ctx, reward); err != nil {
		return nil, fmt.Errorf("failed to create reward: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"rewardID": reward.ID,
		"name":     reward.Name,
		"cost":     reward.Cost,
		"discount": reward.DiscountPercent,
	}).Info("Reward created")

	return reward, nil
}

// UpdateReward changes price and discount. Issued receipts keep the price they were charged.
func (s *adminService) UpdateReward(ctx context.Context, rewardID int64, cost int64, discountPercent int) (*models.RewardDefinition, error) {
	if cost < 0 {
		return nil, invalidInput("cost must be non-negative")
	}
	if discountPercent < 0 || discountPercent > 100 {
		return nil, invalidInput("discount must be between 0 and 100")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	reward, err := uow.RewardRepository().GetByID(ctx, rewardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	if reward == nil || reward.Retired {
		return nil, ErrRewardNotFound
	}

	reward.Cost = cost
	reward.DiscountPercent = discountPercent
	if err := uow.RewardRepository().Update(ctx, reward); err != nil {
		return nil, fmt.Errorf("failed to update reward: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"rewardID": rewardID,
		"cost":     cost,
		"discount": discountPercent,
	}).Info("Reward updated")

	return reward, nil
}

// RetireReward hides a reward from the catalog. Rows are kept for the audit trail.
func (s *adminService) RetireReward(ctx context.Context, rewardID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	reward, err := uow.RewardRepository().GetByID(ctx, rewardID)
	if err != nil {
		return fmt.Errorf("failed to get reward: %w", err)
	}
	if reward == nil {
		return ErrRewardNotFound
	}
	if reward.Retired {
		return nil
	}

	reward.Retired = true
	if err := uow.RewardRepository().Update(ctx, reward); err != nil {
		return fmt.Errorf("failed to retire reward: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithField("rewardID", rewardID).Info("Reward retired")
	return nil
}

// FindReward looks a reward up by name, including retired ones
func (s *adminService) FindReward(ctx context.Context, name string) (*models.RewardDefinition, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	reward, err := uow.RewardRepository().GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	if reward == nil {
		return nil, ErrRewardNotFound
	}
	return reward, nil
}

// AddInventory stores one unit per non-blank payload and returns how many were added
func (s *adminService) AddInventory(ctx context.Context, rewardID int64, payloads []string) (int64, error) {
	cleaned := make([]string, 0, len(payloads))
	for _, payload := range payloads {
		if payload = strings.TrimSpace(payload); payload != "" {
			cleaned = append(cleaned, payload)
		}
	}
	if len(cleaned) == 0 {
		return 0, invalidInput("no inventory payloads supplied")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	reward, err := uow.RewardRepository().GetByID(ctx, rewardID)
	if err != nil {
		return 0, fmt.Errorf("failed to get reward: %w", err)
	}
	if reward == nil || reward.Retired {
		return 0, ErrRewardNotFound
	}

	added, err := uow.InventoryRepository().AddItems(ctx, rewardID, cleaned)
	if err != nil {
		return 0, fmt.Errorf("failed to add inventory: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"rewardID": rewardID,
		"added":    added,
	}).Info("Inventory added")

	return added, nil
}

func (s *adminService) SetSetting(ctx context.Context, key, value string) error {
	return s.settings.Set(ctx, key, value)
}

// AdjustBalance applies a signed delta and returns the new balance. Balances never go negative.
func (s *adminService) AdjustBalance(ctx context.Context, discordID int64, delta int64) (int64, error) {
	if delta == 0 {
		return 0, invalidInput("adjustment must be non-zero")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByDiscordIDForUpdate(ctx, discordID)
	if err != nil {
		return 0, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return 0, ErrUserNotFound
	}

	var newBalance int64
	if delta > 0 {
		newBalance, err = uow.UserRepository().AddPoints(ctx, discordID, delta)
	} else {
		if user.Points+delta < 0 {
			return 0, fmt.Errorf("%w: have %d, adjustment %d", ErrInsufficientPoints, user.Points, delta)
		}
		newBalance, err = uow.UserRepository().DeductPoints(ctx, discordID, -delta)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust balance: %w", err)
	}

	history := &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   user.Points,
		BalanceAfter:    newBalance,
		ChangeAmount:    delta,
		TransactionType: models.TransactionTypeAdjustment,
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"discordID":  discordID,
		"delta":      delta,
		"newBalance": newBalance,
	}).Info("Balance adjusted")

	return newBalance, nil
}

func (s *adminService) SetBanned(ctx context.Context, discordID int64, banned bool) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByDiscordIDForUpdate(ctx, discordID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := uow.UserRepository().SetBanned(ctx, discordID, banned); err != nil {
		return fmt.Errorf("failed to set banned flag: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"discordID": discordID,
		"banned":    banned,
	}).Info("Ban flag updated")

	return nil
}

func validateReward(name string, cost int64, discountPercent int) error {
	if name == "" {
		return invalidInput("reward name is required")
	}
	if len(name) > maxRewardNameLength {
		return invalidInput("reward name must be at most %d characters", maxRewardNameLength)
	}
	if cost < 0 {
		return invalidInput("cost must be non-negative")
	}
	if discountPercent < 0 || discountPercent > 100 {
		return invalidInput("discount must be between 0 and 100")
	}
	return nil
}
