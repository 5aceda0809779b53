package bot

import (
	"context"
	"fmt"
	"time"

	"ledgerbot/bot/common"
	"ledgerbot/events"
	"ledgerbot/service"

	log "github.com/sirupsen/logrus"
)

const notifyTimeout = 10 * time.Second

// RegisterNotifications sends direct messages for committed ledger events.
// Delivery failures are logged and never touch the ledger.
func RegisterNotifications(bus *events.Bus, notifier service.Notifier) {
	bus.Subscribe(events.EventTypeReferralPaid, func(ctx context.Context, event events.Event) {
		paid, ok := event.(events.ReferralPaidEvent)
		if !ok {
			return
		}
		message := fmt.Sprintf("🎉 A friend you invited just joined! You earned **%s** points. Balance: **%s** points.",
			common.FormatPoints(paid.Amount), common.FormatPoints(paid.NewBalance))
		deliver(ctx, notifier, paid.ReferrerID, message, event.Type())
	})

	bus.Subscribe(events.EventTypeRewardRedeemed, func(ctx context.Context, event events.Event) {
		redeemed, ok := event.(events.RewardRedeemedEvent)
		if !ok {
			return
		}
		message := fmt.Sprintf("🧾 Purchase confirmed: **%s** for %s points. Receipt `%s`. Balance: **%s** points.",
			redeemed.RewardName, common.FormatPoints(redeemed.PointsCharged),
			redeemed.ReceiptReference, common.FormatPoints(redeemed.NewBalance))
		deliver(ctx, notifier, redeemed.UserID, message, event.Type())
	})

	log.Info("Notification subscriptions registered")
}

// RegisterAuditLog writes one log line per committed balance change and registration
func RegisterAuditLog(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, event events.Event) {
		change, ok := event.(events.BalanceChangeEvent)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"discordID":       change.UserID,
			"oldBalance":      change.OldBalance,
			"newBalance":      change.NewBalance,
			"changeAmount":    change.ChangeAmount,
			"transactionType": change.TransactionType,
		}).Info("Balance changed")
	})

	bus.Subscribe(events.EventTypeUserCreated, func(ctx context.Context, event events.Event) {
		created, ok := event.(events.UserCreatedEvent)
		if !ok {
			return
		}
		log.WithFields(log.Fields{
			"discordID": created.DiscordID,
			"username":  created.Username,
		}).Info("User registered")
	})
}

func deliver(ctx context.Context, notifier service.Notifier, discordID int64, message string, eventType events.EventType) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if err := notifier.Notify(ctx, discordID, message); err != nil {
		log.WithFields(log.Fields{
			"discordID": discordID,
			"eventType": eventType,
			"error":     err,
		}).Warn("Failed to deliver notification")
	}
}
