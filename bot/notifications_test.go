package bot

import (
	"errors"
	"strings"
	"testing"

	"ledgerbot/events"
	"ledgerbot/models"
	"ledgerbot/service"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegisterNotifications_ReferralPaid(t *testing.T) {
	bus := events.NewBus()
	notifier := new(service.MockNotifier)
	RegisterNotifications(bus, notifier)

	notifier.On("Notify", mock.Anything, int64(100),
		"🎉 A friend you invited just joined! You earned **2** points. Balance: **1,002** points.").Return(nil).Once()

	tx := events.NewTransactionalBus(bus)
	tx.Publish(events.ReferralPaidEvent{ReferrerID: 100, RefereeID: 200, Amount: 2, NewBalance: 1002})
	tx.Flush()
	bus.Wait()

	notifier.AssertExpectations(t)
}

func TestRegisterNotifications_RewardRedeemed(t *testing.T) {
	bus := events.NewBus()
	notifier := new(service.MockNotifier)
	RegisterNotifications(bus, notifier)

	notifier.On("Notify", mock.Anything, int64(7), mock.MatchedBy(func(message string) bool {
		return strings.Contains(message, "Premium") && strings.Contains(message, "`ref-1`")
	})).Return(nil).Once()

	tx := events.NewTransactionalBus(bus)
	tx.Publish(events.RewardRedeemedEvent{UserID: 7, RewardName: "Premium", PointsCharged: 10, NewBalance: 2, ReceiptReference: "ref-1"})
	tx.Flush()
	bus.Wait()

	notifier.AssertExpectations(t)
}

func TestRegisterNotifications_DiscardedEventsAreNotDelivered(t *testing.T) {
	bus := events.NewBus()
	notifier := new(service.MockNotifier)
	RegisterNotifications(bus, notifier)

	tx := events.NewTransactionalBus(bus)
	tx.Publish(events.RewardRedeemedEvent{UserID: 7})
	tx.Discard()
	tx.Flush()
	bus.Wait()

	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterNotifications_DeliveryFailureIsSwallowed(t *testing.T) {
	bus := events.NewBus()
	notifier := new(service.MockNotifier)
	RegisterNotifications(bus, notifier)

	notifier.On("Notify", mock.Anything, int64(7), mock.Anything).Return(errors.New("DMs closed")).Once()

	assert.NotPanics(t, func() {
		bus.Emit(t.Context(), events.RewardRedeemedEvent{UserID: 7})
		bus.Wait()
	})
	notifier.AssertExpectations(t)
}

func TestRegisterAuditLog(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	bus := events.NewBus()
	RegisterAuditLog(bus)

	tx := events.NewTransactionalBus(bus)
	tx.Publish(events.UserCreatedEvent{DiscordID: 7, Username: "bob"})
	tx.Publish(events.BalanceChangeEvent{
		UserID:          7,
		OldBalance:      10,
		NewBalance:      4,
		ChangeAmount:    -6,
		TransactionType: models.TransactionTypeRedemption,
	})
	tx.Flush()
	bus.Wait()

	byMessage := map[string]*log.Entry{}
	for _, entry := range hook.AllEntries() {
		byMessage[entry.Message] = entry
	}

	registered := byMessage["User registered"]
	require.NotNil(t, registered)
	assert.Equal(t, int64(7), registered.Data["discordID"])

	changed := byMessage["Balance changed"]
	require.NotNil(t, changed)
	assert.Equal(t, int64(-6), changed.Data["changeAmount"])
	assert.Equal(t, models.TransactionTypeRedemption, changed.Data["transactionType"])
}
