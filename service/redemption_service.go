package service

import (
	"context"
	"fmt"

	"ledgerbot/events"
	"ledgerbot/models"

	log "github.com/sirupsen/logrus"
)

const (
	defaultReceiptLimit = 10
	maxReceiptLimit     = 50
)

// redemptionService implements the RedemptionService interface
type redemptionService struct {
	uowFactory UnitOfWorkFactory
}

// NewRedemptionService creates a new redemption engine
func NewRedemptionService(uowFactory UnitOfWorkFactory) RedemptionService {
	return &redemptionService{
		uowFactory: uowFactory,
	}
}

// Redeem exchanges the reward's effective price for its lowest-id free inventory unit.
// Inventory is reserved before points move so an empty stock never costs the user anything.
func (s *redemptionService) Redeem(ctx context.Context, discordID, rewardID int64) (*models.RedemptionResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Locking the user row serializes redemptions by the same user
	user, err := uow.UserRepository().GetByDiscordIDForUpdate(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Banned {
		return nil, ErrUserBanned
	}

	reward, err := uow.RewardRepository().GetByID(ctx, rewardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	if reward == nil || reward.Retired {
		return nil, ErrRewardNotFound
	}

	price := reward.EffectivePrice()
	if user.Points < price {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientPoints, user.Points, price)
	}

	item, err := uow.InventoryRepository().ReserveNext(ctx, rewardID, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve inventory: %w", err)
	}
	if item == nil {
		return nil, ErrOutOfStock
	}

	newBalance := user.Points
	if price > 0 {
		newBalance, err = uow.UserRepository().DeductPoints(ctx, discordID, price)
		if err != nil {
			return nil, fmt.Errorf("failed to deduct points: %w", err)
		}
	}

	receipt := &models.PurchaseReceipt{
		DiscordID:       discordID,
		RewardID:        rewardID,
		InventoryItemID: item.ID,
		PointsCharged:   price,
	}
	if err := uow.ReceiptRepository().Create(ctx, receipt); err != nil {
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}

	if price > 0 {
		relatedID, relatedType := relatedRef(receipt.ID, models.RelatedTypeReceipt)
		history := &models.BalanceHistory{
			DiscordID:       discordID,
			BalanceBefore:   user.Points,
			BalanceAfter:    newBalance,
			ChangeAmount:    -price,
			TransactionType: models.TransactionTypeRedemption,
			TransactionMetadata: map[string]any{
				"reward_id":         rewardID,
				"reward_name":       reward.Name,
				"receipt_reference": receipt.Reference.String(),
			},
			RelatedID:   relatedID,
			RelatedType: relatedType,
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return nil, err
		}
	}

	uow.EventBus().Publish(events.RewardRedeemedEvent{
		UserID:           discordID,
		RewardID:         rewardID,
		RewardName:       reward.Name,
		PointsCharged:    price,
		NewBalance:       newBalance,
		ReceiptReference: receipt.Reference.String(),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Never log the payload
	log.WithFields(log.Fields{
		"discordID":  discordID,
		"rewardID":   rewardID,
		"price":      price,
		"newBalance": newBalance,
		"receipt":    receipt.Reference,
	}).Info("Reward redeemed")

	return &models.RedemptionResult{
		Receipt:    receipt,
		RewardName: reward.Name,
		Payload:    item.Payload,
		NewBalance: newBalance,
	}, nil
}

// ListRewards returns active rewards with their effective price and available stock
func (s *redemptionService) ListRewards(ctx context.Context) ([]*models.CatalogEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rewards, err := uow.RewardRepository().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}

	entries := make([]*models.CatalogEntry, 0, len(rewards))
	for _, reward := range rewards {
		available, err := uow.InventoryRepository().CountAvailable(ctx, reward.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count stock for reward %d: %w", reward.ID, err)
		}
		entries = append(entries, &models.CatalogEntry{
			Reward:         reward,
			EffectivePrice: reward.EffectivePrice(),
			Available:      available,
		})
	}
	return entries, nil
}

func (s *redemptionService) StockCounts(ctx context.Context) ([]models.StockCount, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	counts, err := uow.InventoryRepository().StockCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock counts: %w", err)
	}
	return counts, nil
}

// ListReceipts returns the user's most recent receipts, newest first
func (s *redemptionService) ListReceipts(ctx context.Context, discordID int64, limit int) ([]*models.PurchaseReceipt, error) {
	if limit <= 0 {
		limit = defaultReceiptLimit
	}
	if limit > maxReceiptLimit {
		limit = maxReceiptLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	receipts, err := uow.ReceiptRepository().GetByUser(ctx, discordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipts: %w", err)
	}
	return receipts, nil
}
