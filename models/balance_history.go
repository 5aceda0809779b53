package models

import (
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeReferralReward TransactionType = "referral_reward"
	TransactionTypeRedemption     TransactionType = "redemption"
	TransactionTypeAdjustment     TransactionType = "admin_adjustment"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeReceipt RelatedType = "purchase_receipt"
	RelatedTypeUser    RelatedType = "user"
)

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	DiscordID           int64           `db:"discord_id"`
	BalanceBefore       int64           `db:"balance_before"`
	BalanceAfter        int64           `db:"balance_after"`
	ChangeAmount        int64           `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedID           *int64          `db:"related_id"`
	RelatedType         *RelatedType    `db:"related_type"`
	CreatedAt           time.Time       `db:"created_at"`
}
