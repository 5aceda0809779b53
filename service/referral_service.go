package service

import (
	"context"
	"fmt"

	"ledgerbot/events"
	"ledgerbot/models"

	log "github.com/sirupsen/logrus"
)

// VerificationResult is the outcome of an "I joined" action
type VerificationResult struct {
	Decision     *models.MembershipDecision
	ReferralPaid bool // a referrer was credited by this call
}

// referralService implements the ReferralService interface
type referralService struct {
	uowFactory UnitOfWorkFactory
	gate       MembershipGate
}

// NewReferralService creates a new referral ledger
func NewReferralService(uowFactory UnitOfWorkFactory, gate MembershipGate) ReferralService {
	return &referralService{
		uowFactory: uowFactory,
		gate:       gate,
	}
}

// AttachReferrer binds referrerCandidate as the user's referrer if none is recorded
// and the user has not verified membership yet. Self referral, unknown referrers
// and two-user cycles are ignored.
func (s *referralService) AttachReferrer(ctx context.Context, discordID, referrerCandidate int64) (bool, error) {
	if referrerCandidate == 0 || referrerCandidate == discordID {
		return false, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByDiscordIDForUpdate(ctx, discordID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return false, ErrUserNotFound
	}
	// A user who already verified or settled can no longer be claimed
	if user.HasReferrer() || user.MembershipVerified || user.ReferralPaid {
		return false, nil
	}

	referrer, err := uow.UserRepository().GetByDiscordID(ctx, referrerCandidate)
	if err != nil {
		return false, fmt.Errorf("failed to get referrer: %w", err)
	}
	if referrer == nil {
		log.WithFields(log.Fields{
			"discordID": discordID,
			"referrer":  referrerCandidate,
		}).Debug("Ignoring unknown referrer")
		return false, nil
	}
	if referrer.ReferredBy != nil && *referrer.ReferredBy == discordID {
		return false, nil
	}

	attached, err := uow.UserRepository().SetReferrer(ctx, discordID, referrerCandidate)
	if err != nil {
		return false, fmt.Errorf("failed to set referrer: %w", err)
	}
	if !attached {
		return false, nil
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"discordID": discordID,
		"referrer":  referrerCandidate,
	}).Info("Referrer attached")

	return true, nil
}

// SettlePayoutIfEligible credits the referrer once the user has verified membership.
// The payout flag and the credit commit together or not at all.
func (s *referralService) SettlePayoutIfEligible(ctx context.Context, discordID int64) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Row lock serializes concurrent settlements for the same user
	user, err := uow.UserRepository().GetByDiscordIDForUpdate(ctx, discordID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return false, ErrUserNotFound
	}
	if !user.MembershipVerified || user.ReferralPaid || !user.HasReferrer() || user.Banned {
		return false, nil
	}
	referrerID := *user.ReferredBy

	amount, err := referralRewardInTx(ctx, uow)
	if err != nil {
		return false, err
	}

	marked, err := uow.UserRepository().MarkReferralPaid(ctx, discordID)
	if err != nil {
		return false, fmt.Errorf("failed to mark referral paid: %w", err)
	}
	if !marked {
		return false, nil
	}

	if amount > 0 {
		newBalance, err := uow.UserRepository().AddPoints(ctx, referrerID, amount)
		if err != nil {
			return false, fmt.Errorf("failed to credit referrer: %w", err)
		}

		relatedID, relatedType := relatedRef(discordID, models.RelatedTypeUser)
		history := &models.BalanceHistory{
			DiscordID:       referrerID,
			BalanceBefore:   newBalance - amount,
			BalanceAfter:    newBalance,
			ChangeAmount:    amount,
			TransactionType: models.TransactionTypeReferralReward,
			TransactionMetadata: map[string]any{
				"referee_discord_id": discordID,
			},
			RelatedID:   relatedID,
			RelatedType: relatedType,
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return false, err
		}

		uow.EventBus().Publish(events.ReferralPaidEvent{
			ReferrerID: referrerID,
			RefereeID:  discordID,
			Amount:     amount,
			NewBalance: newBalance,
		})
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"referee":  discordID,
		"referrer": referrerID,
		"amount":   amount,
	}).Info("Referral payout settled")

	return true, nil
}

// VerifyAndSettle re-runs the membership gate and settles a pending referral payout when it passes
func (s *referralService) VerifyAndSettle(ctx context.Context, discordID int64) (*VerificationResult, error) {
	user, err := s.loadUser(ctx, discordID)
	if err != nil {
		return nil, err
	}
	if user.Banned {
		return nil, ErrUserBanned
	}

	decision, err := s.gate.Verify(ctx, discordID)
	if err != nil {
		return nil, err
	}

	result := &VerificationResult{Decision: decision}
	if !decision.Allowed {
		return result, nil
	}

	paid, err := s.SettlePayoutIfEligible(ctx, discordID)
	if err != nil {
		return nil, err
	}
	result.ReferralPaid = paid
	return result, nil
}

// ReferralInfo returns the current reward per referral with the user's paid and pending counts
func (s *referralService) ReferralInfo(ctx context.Context, discordID int64) (*models.ReferralInfo, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	amount, err := referralRewardInTx(ctx, uow)
	if err != nil {
		return nil, err
	}

	paid, pending, err := uow.UserRepository().CountReferrals(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to count referrals: %w", err)
	}

	return &models.ReferralInfo{
		RewardPerReferral: amount,
		PaidReferrals:     paid,
		PendingReferrals:  pending,
	}, nil
}

func (s *referralService) loadUser(ctx context.Context, discordID int64) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// referralRewardInTx reads the configured reward inside the caller's transaction
func referralRewardInTx(ctx context.Context, uow UnitOfWork) (int64, error) {
	setting, err := uow.SettingsRepository().Get(ctx, models.SettingReferralReward)
	if err != nil {
		return 0, fmt.Errorf("failed to read referral reward: %w", err)
	}
	if setting == nil {
		return parseReferralReward(models.DefaultSettings[models.SettingReferralReward]), nil
	}
	return parseReferralReward(setting.Value), nil
}
