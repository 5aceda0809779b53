package repository

import (
	"context"
	"errors"
	"fmt"

	"ledgerbot/database"
	"ledgerbot/models"

	"github.com/jackc/pgx/v5"
)

// InventoryRepository implements the InventoryRepository interface
type InventoryRepository struct {
	q queryable
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *database.DB) *InventoryRepository {
	return &InventoryRepository{q: db.Pool}
}

func newInventoryRepositoryWithTx(tx queryable) *InventoryRepository {
	return &InventoryRepository{q: tx}
}

// AddItems inserts one unconsumed unit per payload in a single round trip
func (r *InventoryRepository) AddItems(ctx context.Context, rewardID int64, payloads []string) (int64, error) {
	if len(payloads) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, payload := range payloads {
		batch.Queue(`INSERT INTO inventory_items (reward_id, payload) VALUES ($1, $2)`, rewardID, payload)
	}

	results := r.q.SendBatch(ctx, batch)
	defer results.Close()

	var added int64
	for range payloads {
		tag, err := results.Exec()
		if err != nil {
			return 0, fmt.Errorf("failed to add inventory for reward %d: %w", rewardID, err)
		}
		added += tag.RowsAffected()
	}
	return added, nil
}

// ReserveNext marks the lowest-id unconsumed unit as consumed by discordID.
// Rows locked by a concurrent reservation are skipped, so two callers never get the same unit.
func (r *InventoryRepository) ReserveNext(ctx context.Context, rewardID int64, discordID int64) (*models.InventoryItem, error) {
	query := `
		UPDATE inventory_items
		SET consumed = TRUE, consumed_by = $2, consumed_at = NOW()
		WHERE id = (
			SELECT id FROM inventory_items
			WHERE reward_id = $1 AND NOT consumed
			ORDER BY id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, reward_id, payload, consumed, consumed_by, consumed_at, created_at
	`

	var item models.InventoryItem
	err := r.q.QueryRow(ctx, query, rewardID, discordID).Scan(
		&item.ID,
		&item.RewardID,
		&item.Payload,
		&item.Consumed,
		&item.ConsumedBy,
		&item.ConsumedAt,
		&item.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reserve inventory for reward %d: %w", rewardID, err)
	}
	return &item, nil
}

func (r *InventoryRepository) CountAvailable(ctx context.Context, rewardID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM inventory_items WHERE reward_id = $1 AND NOT consumed`

	var count int64
	if err := r.q.QueryRow(ctx, query, rewardID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count inventory for reward %d: %w", rewardID, err)
	}
	return count, nil
}

// StockCounts returns available and consumed counts for every reward that ever had inventory
func (r *InventoryRepository) StockCounts(ctx context.Context) ([]models.StockCount, error) {
	query := `
		SELECT
			r.id,
			r.name,
			COUNT(*) FILTER (WHERE NOT i.consumed),
			COUNT(*) FILTER (WHERE i.consumed)
		FROM rewards r
		JOIN inventory_items i ON i.reward_id = r.id
		GROUP BY r.id, r.name
		ORDER BY r.id
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock counts: %w", err)
	}
	defer rows.Close()

	var counts []models.StockCount
	for rows.Next() {
		var count models.StockCount
		if err := rows.Scan(&count.RewardID, &count.RewardName, &count.Available, &count.Consumed); err != nil {
			return nil, fmt.Errorf("failed to scan stock count: %w", err)
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock counts: %w", err)
	}
	return counts, nil
}
