package repository

import (
	"context"
	"errors"
	"fmt"

	"ledgerbot/database"
	"ledgerbot/models"
	"ledgerbot/service"

	"github.com/jackc/pgx/v5"
)

const rewardColumns = `id, name, cost, discount_percent, retired, created_at, updated_at`

// RewardRepository implements the RewardRepository interface
type RewardRepository struct {
	q queryable
}

// NewRewardRepository creates a new reward repository
func NewRewardRepository(db *database.DB) *RewardRepository {
	return &RewardRepository{q: db.Pool}
}

func newRewardRepositoryWithTx(tx queryable) *RewardRepository {
	return &RewardRepository{q: tx}
}

func scanReward(row pgx.Row) (*models.RewardDefinition, error) {
	var reward models.RewardDefinition
	err := row.Scan(
		&reward.ID,
		&reward.Name,
		&reward.Cost,
		&reward.DiscountPercent,
		&reward.Retired,
		&reward.CreatedAt,
		&reward.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

// Create inserts a reward definition; a duplicate name yields service.ErrRewardExists
func (r *RewardRepository) Create(ctx context.Context, reward *models.RewardDefinition) error {
	query := `
		INSERT INTO rewards (name, cost, discount_percent)
		VALUES ($1, $2, $3)
		RETURNING id, retired, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, reward.Name, reward.Cost, reward.DiscountPercent).
		Scan(&reward.ID, &reward.Retired, &reward.CreatedAt, &reward.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("reward %q: %w", reward.Name, service.ErrRewardExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create reward %q: %w", reward.Name, err)
	}
	return nil
}

// GetByID retrieves a reward by id
func (r *RewardRepository) GetByID(ctx context.Context, id int64) (*models.RewardDefinition, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards WHERE id = $1`

	reward, err := scanReward(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward %d: %w", id, err)
	}
	return reward, nil
}

// GetByName retrieves a reward by its unique name
func (r *RewardRepository) GetByName(ctx context.Context, name string) (*models.RewardDefinition, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards WHERE name = $1`

	reward, err := scanReward(r.q.QueryRow(ctx, query, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward %q: %w", name, err)
	}
	return reward, nil
}

// Update persists cost, discount and the retired flag
func (r *RewardRepository) Update(ctx context.Context, reward *models.RewardDefinition) error {
	query := `
		UPDATE rewards
		SET cost = $2, discount_percent = $3, retired = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query, reward.ID, reward.Cost, reward.DiscountPercent, reward.Retired).
		Scan(&reward.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return service.ErrRewardNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update reward %d: %w", reward.ID, err)
	}
	return nil
}

// ListActive returns rewards that have not been retired, cheapest first
func (r *RewardRepository) ListActive(ctx context.Context) ([]*models.RewardDefinition, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards WHERE NOT retired ORDER BY cost, id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []*models.RewardDefinition
	for rows.Next() {
		reward, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, reward)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rewards: %w", err)
	}
	return rewards, nil
}
