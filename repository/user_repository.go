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

const userColumns = `discord_id, username, points, referred_by, referral_paid,
	membership_verified, membership_checked_at, banned, created_at, updated_at`

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.DiscordID,
		&user.Username,
		&user.Points,
		&user.ReferredBy,
		&user.ReferralPaid,
		&user.MembershipVerified,
		&user.MembershipCheckedAt,
		&user.Banned,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByDiscordID retrieves a user by their Discord ID
func (r *UserRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE discord_id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, discordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by discord ID %d: %w", discordID, err)
	}
	return user, nil
}

// GetByDiscordIDForUpdate retrieves a user and holds a row lock until the transaction ends
func (r *UserRepository) GetByDiscordIDForUpdate(ctx context.Context, discordID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE discord_id = $1 FOR UPDATE`

	user, err := scanUser(r.q.QueryRow(ctx, query, discordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", discordID, err)
	}
	return user, nil
}

// Create inserts a user with a zero balance. A concurrent insert of the same ID returns the existing row.
func (r *UserRepository) Create(ctx context.Context, discordID int64, username string) (*models.User, error) {
	query := `
		INSERT INTO users (discord_id, username)
		VALUES ($1, $2)
		ON CONFLICT (discord_id) DO NOTHING
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, discordID, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return r.GetByDiscordID(ctx, discordID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user with discord ID %d: %w", discordID, err)
	}
	return user, nil
}

// SetReferrer records the referrer only if none is set yet
func (r *UserRepository) SetReferrer(ctx context.Context, discordID int64, referrerID int64) (bool, error) {
	query := `
		UPDATE users
		SET referred_by = $2, updated_at = NOW()
		WHERE discord_id = $1 AND referred_by IS NULL AND discord_id <> $2
	`

	result, err := r.q.Exec(ctx, query, discordID, referrerID)
	if err != nil {
		return false, fmt.Errorf("failed to set referrer for user %d: %w", discordID, err)
	}
	return result.RowsAffected() == 1, nil
}

// MarkReferralPaid flips the payout flag; false means it was already set
func (r *UserRepository) MarkReferralPaid(ctx context.Context, discordID int64) (bool, error) {
	query := `
		UPDATE users
		SET referral_paid = TRUE, updated_at = NOW()
		WHERE discord_id = $1 AND referral_paid = FALSE
	`

	result, err := r.q.Exec(ctx, query, discordID)
	if err != nil {
		return false, fmt.Errorf("failed to mark referral paid for user %d: %w", discordID, err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *UserRepository) SetMembershipVerified(ctx context.Context, discordID int64, verified bool) error {
	query := `
		UPDATE users
		SET membership_verified = $2, membership_checked_at = NOW(), updated_at = NOW()
		WHERE discord_id = $1
	`

	result, err := r.q.Exec(ctx, query, discordID, verified)
	if err != nil {
		return fmt.Errorf("failed to record membership for user %d: %w", discordID, err)
	}
	if result.RowsAffected() == 0 {
		return service.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetBanned(ctx context.Context, discordID int64, banned bool) error {
	query := `UPDATE users SET banned = $2, updated_at = NOW() WHERE discord_id = $1`

	result, err := r.q.Exec(ctx, query, discordID, banned)
	if err != nil {
		return fmt.Errorf("failed to set banned for user %d: %w", discordID, err)
	}
	if result.RowsAffected() == 0 {
		return service.ErrUserNotFound
	}
	return nil
}

// AddPoints credits points atomically and returns the new balance
func (r *UserRepository) AddPoints(ctx context.Context, discordID int64, amount int64) (int64, error) {
	query := `
		UPDATE users
		SET points = points + $2, updated_at = NOW()
		WHERE discord_id = $1
		RETURNING points
	`

	var points int64
	err := r.q.QueryRow(ctx, query, discordID, amount).Scan(&points)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, service.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add points for user %d: %w", discordID, err)
	}
	return points, nil
}

// DeductPoints debits points only when the balance covers the amount
func (r *UserRepository) DeductPoints(ctx context.Context, discordID int64, amount int64) (int64, error) {
	query := `
		UPDATE users
		SET points = points - $2, updated_at = NOW()
		WHERE discord_id = $1 AND points >= $2
		RETURNING points
	`

	var points int64
	err := r.q.QueryRow(ctx, query, discordID, amount).Scan(&points)
	if errors.Is(err, pgx.ErrNoRows) {
		user, lookupErr := r.GetByDiscordID(ctx, discordID)
		if lookupErr != nil {
			return 0, lookupErr
		}
		if user == nil {
			return 0, service.ErrUserNotFound
		}
		return 0, fmt.Errorf("%w: have %d, need %d", service.ErrInsufficientPoints, user.Points, amount)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to deduct points for user %d: %w", discordID, err)
	}
	return points, nil
}

// CountReferrals returns how many referees have and have not been paid out
func (r *UserRepository) CountReferrals(ctx context.Context, referrerID int64) (int64, int64, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE referral_paid),
			COUNT(*) FILTER (WHERE NOT referral_paid)
		FROM users
		WHERE referred_by = $1
	`

	var paid, pending int64
	if err := r.q.QueryRow(ctx, query, referrerID).Scan(&paid, &pending); err != nil {
		return 0, 0, fmt.Errorf("failed to count referrals for user %d: %w", referrerID, err)
	}
	return paid, pending, nil
}
