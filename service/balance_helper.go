package service

import (
	"context"
	"fmt"

	"ledgerbot/events"
	"ledgerbot/models"
)

// RecordBalanceChange records a balance history entry and queues a balance change event.
// Every point movement in the ledger goes through here.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, history *models.BalanceHistory) error {
	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	// Flushed only once the surrounding transaction commits
	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:          history.DiscordID,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		TransactionType: history.TransactionType,
		ChangeAmount:    history.ChangeAmount,
	})

	return nil
}

func relatedRef(id int64, relatedType models.RelatedType) (*int64, *models.RelatedType) {
	return &id, &relatedType
}
