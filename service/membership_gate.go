package service

import (
	"context"
	"fmt"
	"time"

	"ledgerbot/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentProbes bounds parallel membership queries per decision
const maxConcurrentProbes = 4

// membershipGate implements the MembershipGate interface
type membershipGate struct {
	uowFactory   UnitOfWorkFactory
	settings     SettingsService
	checker      MembershipChecker
	probeTimeout time.Duration
}

// NewMembershipGate creates a gate that probes channels through checker, each probe bounded by probeTimeout
func NewMembershipGate(uowFactory UnitOfWorkFactory, settings SettingsService, checker MembershipChecker, probeTimeout time.Duration) MembershipGate {
	return &membershipGate{
		uowFactory:   uowFactory,
		settings:     settings,
		checker:      checker,
		probeTimeout: probeTimeout,
	}
}

// Check probes every required channel. Nothing is persisted.
func (g *membershipGate) Check(ctx context.Context, discordID int64) (*models.MembershipDecision, error) {
	channels, err := g.settings.RequiredChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load required channels: %w", err)
	}

	if len(channels) == 0 {
		return &models.MembershipDecision{Allowed: true}, nil
	}

	statuses := make([]models.MembershipStatus, len(channels))
	probeErrs := make([]error, len(channels))

	var group errgroup.Group
	group.SetLimit(maxConcurrentProbes)
	for i, channel := range channels {
		group.Go(func() error {
			statuses[i], probeErrs[i] = g.probe(ctx, channel, discordID)
			return nil
		})
	}
	_ = group.Wait()

	decision := &models.MembershipDecision{}
	for i, channel := range channels {
		switch {
		case probeErrs[i] != nil:
			log.WithFields(log.Fields{
				"discordID": discordID,
				"channel":   channel,
				"error":     probeErrs[i],
			}).Warn("Membership probe failed, treating channel as not joined")
			decision.Missing = append(decision.Missing, channel)
			decision.Unverifiable = append(decision.Unverifiable, channel)
		case statuses[i] == models.MembershipMember:
		case statuses[i] == models.MembershipNotMember:
			decision.Missing = append(decision.Missing, channel)
		default:
			decision.Missing = append(decision.Missing, channel)
			decision.Unverifiable = append(decision.Unverifiable, channel)
		}
	}
	decision.Allowed = len(decision.Missing) == 0

	return decision, nil
}

func (g *membershipGate) probe(ctx context.Context, channel string, discordID int64) (models.MembershipStatus, error) {
	probeCtx, cancel := context.WithTimeout(ctx, g.probeTimeout)
	defer cancel()

	type answer struct {
		status models.MembershipStatus
		err    error
	}
	done := make(chan answer, 1)
	go func() {
		status, err := g.checker.IsMember(probeCtx, channel, discordID)
		done <- answer{status: status, err: err}
	}()

	select {
	case a := <-done:
		if a.err != nil {
			return models.MembershipUnknown, fmt.Errorf("%w: %w", ErrMembershipUnavailable, a.err)
		}
		// An answer that raced the deadline is not trusted
		if err := probeCtx.Err(); err != nil {
			return models.MembershipUnknown, fmt.Errorf("%w: %w", ErrMembershipUnavailable, err)
		}
		return a.status, nil
	case <-probeCtx.Done():
		return models.MembershipUnknown, fmt.Errorf("%w: %w", ErrMembershipUnavailable, probeCtx.Err())
	}
}

// Verify runs Check and records the outcome as the user's last-known membership
func (g *membershipGate) Verify(ctx context.Context, discordID int64) (*models.MembershipDecision, error) {
	decision, err := g.Check(ctx, discordID)
	if err != nil {
		return nil, err
	}

	uow := g.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.UserRepository().SetMembershipVerified(ctx, discordID, decision.Allowed); err != nil {
		return nil, fmt.Errorf("failed to record membership: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"discordID": discordID,
		"allowed":   decision.Allowed,
		"missing":   decision.Missing,
	}).Debug("Membership verified")

	return decision, nil
}

// Require skips the live check only when the cached flag is true
func (g *membershipGate) Require(ctx context.Context, user *models.User) (*models.MembershipDecision, error) {
	if user.MembershipVerified {
		return &models.MembershipDecision{Allowed: true}, nil
	}
	return g.Verify(ctx, user.DiscordID)
}
