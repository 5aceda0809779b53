package models

import (
	"time"

	"github.com/google/uuid"
)

// PurchaseReceipt is the immutable record of a redemption
type PurchaseReceipt struct {
	ID              int64     `db:"id"`
	Reference       uuid.UUID `db:"reference"`
	DiscordID       int64     `db:"discord_id"`
	RewardID        int64     `db:"reward_id"`
	InventoryItemID int64     `db:"inventory_item_id"`
	PointsCharged   int64     `db:"points_charged"`
	CreatedAt       time.Time `db:"created_at"`
}

// RedemptionResult is returned to the caller of a successful redemption
type RedemptionResult struct {
	Receipt    *PurchaseReceipt
	RewardName string
	Payload    string
	NewBalance int64
}
