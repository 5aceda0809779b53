package testutil

import (
	"context"
	"fmt"
	"testing"

	"ledgerbot/database"
	"ledgerbot/models"

	"github.com/stretchr/testify/require"
)

// SeedUser inserts a user with the given balance
func SeedUser(t *testing.T, db *database.DB, discordID int64, points int64) *models.User {
	t.Helper()
	_, err := db.Exec(context.Background(),
		`INSERT INTO users (discord_id, username, points) VALUES ($1, $2, $3)`,
		discordID, fmt.Sprintf("user%d", discordID), points)
	require.NoError(t, err)
	return &models.User{DiscordID: discordID, Username: fmt.Sprintf("user%d", discordID), Points: points}
}

// SeedReward inserts a reward with count inventory units named <name>-1..<name>-count
func SeedReward(t *testing.T, db *database.DB, name string, cost int64, discount int, count int) *models.RewardDefinition {
	t.Helper()
	ctx := context.Background()

	reward := &models.RewardDefinition{Name: name, Cost: cost, DiscountPercent: discount}
	err := db.QueryRow(ctx,
		`INSERT INTO rewards (name, cost, discount_percent) VALUES ($1, $2, $3) RETURNING id`,
		name, cost, discount).Scan(&reward.ID)
	require.NoError(t, err)

	for i := 1; i <= count; i++ {
		_, err := db.Exec(ctx,
			`INSERT INTO inventory_items (reward_id, payload) VALUES ($1, $2)`,
			reward.ID, fmt.Sprintf("%s-%d", name, i))
		require.NoError(t, err)
	}
	return reward
}

// CreateTestBalanceHistory creates a balance history entry for a user
func CreateTestBalanceHistory(discordID int64, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   10,
		BalanceAfter:    4,
		ChangeAmount:    -6,
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
	}
}

// Points reads a user's balance straight from the table
func Points(t *testing.T, db *database.DB, discordID int64) int64 {
	t.Helper()
	var points int64
	require.NoError(t, db.QueryRow(context.Background(),
		`SELECT points FROM users WHERE discord_id = $1`, discordID).Scan(&points))
	return points
}

// InventoryTotals returns unconsumed units, receipts and total units ever inserted for a reward
func InventoryTotals(t *testing.T, db *database.DB, rewardID int64) (unconsumed, receipts, total int64) {
	t.Helper()
	err := db.QueryRow(context.Background(), `
		SELECT
			(SELECT COUNT(*) FROM inventory_items WHERE reward_id = $1 AND NOT consumed),
			(SELECT COUNT(*) FROM purchase_receipts WHERE reward_id = $1),
			(SELECT COUNT(*) FROM inventory_items WHERE reward_id = $1)
	`, rewardID).Scan(&unconsumed, &receipts, &total)
	require.NoError(t, err)
	return unconsumed, receipts, total
}
