package repository

import (
	"context"
	"fmt"

	"ledgerbot/database"
	"ledgerbot/models"

	"github.com/google/uuid"
)

// ReceiptRepository implements the ReceiptRepository interface. Receipts are never updated or deleted.
type ReceiptRepository struct {
	q queryable
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *database.DB) *ReceiptRepository {
	return &ReceiptRepository{q: db.Pool}
}

func newReceiptRepositoryWithTx(tx queryable) *ReceiptRepository {
	return &ReceiptRepository{q: tx}
}

// Create appends a receipt, assigning a fresh reference when none is set
func (r *ReceiptRepository) Create(ctx context.Context, receipt *models.PurchaseReceipt) error {
	if receipt.Reference == uuid.Nil {
		receipt.Reference = uuid.New()
	}

	query := `
		INSERT INTO purchase_receipts (reference, discord_id, reward_id, inventory_item_id, points_charged)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		receipt.Reference,
		receipt.DiscordID,
		receipt.RewardID,
		receipt.InventoryItemID,
		receipt.PointsCharged,
	).Scan(&receipt.ID, &receipt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create receipt for user %d: %w", receipt.DiscordID, err)
	}
	return nil
}

// GetByUser returns a user's receipts, newest first
func (r *ReceiptRepository) GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.PurchaseReceipt, error) {
	query := `
		SELECT id, reference, discord_id, reward_id, inventory_item_id, points_charged, created_at
		FROM purchase_receipts
		WHERE discord_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, discordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipts for user %d: %w", discordID, err)
	}
	defer rows.Close()

	var receipts []*models.PurchaseReceipt
	for rows.Next() {
		var receipt models.PurchaseReceipt
		err := rows.Scan(
			&receipt.ID,
			&receipt.Reference,
			&receipt.DiscordID,
			&receipt.RewardID,
			&receipt.InventoryItemID,
			&receipt.PointsCharged,
			&receipt.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, &receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receipts: %w", err)
	}
	return receipts, nil
}

func (r *ReceiptRepository) CountByReward(ctx context.Context, rewardID int64) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_receipts WHERE reward_id = $1`, rewardID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count receipts for reward %d: %w", rewardID, err)
	}
	return count, nil
}
