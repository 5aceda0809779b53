package service

import (
	"context"
	"errors"
	"testing"

	"ledgerbot/events"
	"ledgerbot/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func expectReceipt(m *TestMocks, ctx context.Context, receiptID int64) {
	m.ReceiptRepo.On("Create", ctx, mock.AnythingOfType("*models.PurchaseReceipt")).
		Run(func(args mock.Arguments) {
			receipt := args.Get(1).(*models.PurchaseReceipt)
			receipt.ID = receiptID
			receipt.Reference = uuid.New()
		}).
		Return(nil)
}

func TestRedemptionService_Redeem_Success(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	svc := NewRedemptionService(m.Factory)

	m.UserRepo.On("GetByDiscordIDForUpdate", ctx, int64(TestUserID)).Return(testUser(TestUserID, 12), nil)
	m.RewardRepo.On("GetByID", ctx, int64(TestRewardID)).Return(testReward(10, 0), nil)
	m.InventoryRepo.On("ReserveNext", ctx, int64(TestRewardID), int64(TestUserID)).
		Return(&models.InventoryItem{ID: 1, RewardID: TestRewardID, Payload: "CODE-1"}, nil)
	m.UserRepo.On("DeductPoints", ctx, int64(TestUserID), int64(10)).Return(int64(2), nil)
	expectReceipt(m, ctx, 55)
	m.BalanceHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.DiscordID == TestUserID &&
			h.BalanceBefore == 12 &&
			h.BalanceAfter == 2 &&
			h.ChangeAmount == -10 &&
			h.TransactionType == models.TransactionTypeRedemption &&
			h.RelatedID != nil && *h.RelatedID == 55
	})).Return(nil)
	m.ExpectCommit()

	result, err := svc.Redeem(ctx, TestUserID, TestRewardID)

	require.NoError(t, err)
	assert.Equal(t, "CODE-1", result.Payload)
	assert.Equal(t, "Premium", result.RewardName)
	assert.Equal(t, int64(2), result.NewBalance)
	assert.Equal(t, int64(10), result.Receipt.PointsCharged)
	assert.Equal(t, int64(1), result.Receipt.InventoryItemID)
	assert.NotEqual(t, uuid.Nil, result.Receipt.Reference)

	assert.Equal(t, []events.EventType{events.EventTypeBalanceChange, events.EventTypeRewardRedeemed}, eventTypes(m.EventPublisher.Published))
	redeemed := m.EventPublisher.OfType(events.EventTypeRewardRedeemed)[0].(events.RewardRedeemedEvent)
	assert.Equal(t, result.Receipt.Reference.String(), redeemed.ReceiptReference)
	assert.Equal(t, int64(10), redeemed.PointsCharged)

	m.AssertAllExpectations(t)
}

func TestRedemptionService_Redeem_ChargesDiscountedPrice(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	svc := NewRedemptionService(m.Factory)

	// 10 points at 25% off is 7.5, rounded half up
	m.UserRepo.On("GetByDiscordIDForUpdate", ctx, int64(TestUserID)).Return(testUser(TestUserID, 8), nil)
	m.RewardRepo.On("GetByID", ctx, int64(TestRewardID)).Return(testReward(10, 25), nil)
	m.InventoryRepo.On("ReserveNext", ctx, int64(TestRewardID), int64(TestUserID)).
		Return(&models.InventoryItem{ID: 3, Payload: "CODE-3"}, nil)
	m.UserRepo.On("DeductPoints", ctx, int64(TestUserID), int64(8)).Return(int64(0), nil)
	expectReceipt(m, ctx, 56)
	m.BalanceHistoryRepo.On("Record", ctx, mock.Anything).Return(nil)
	m.ExpectCommit()

	result, err := svc.Redeem(ctx, TestUserID, TestRewardID)

	require.NoError(t, err)
	assert.Equal(t, int64(8), result.Receipt.PointsCharged)
	assert.Equal(t, int64(0), result.NewBalance)
	m.AssertAllExpectations(t)
}

func TestRedemptionService_Redeem_InsufficientPoints(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	svc := NewRedemptionService(m.Factory)

	m.UserRepo.On("GetByDiscordIDForUpdate", ctx, int64(TestUserID)).Return(testUser(TestUserID, 5), nil)
	m.RewardRepo.On("GetByID", ctx, int64(TestRewardID)).Return(testReward(10, 0), nil)

	result, err := svc.Redeem(ctx, TestUserID, TestRewardID)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Equal(t, KindInsufficientResource, KindOf(err))

	m.InventoryRepo.AssertNotCalled(t, "ReserveNext", mock.Anything, mock.Anything, mock.Anything)
	m.UserRepo.AssertNotCalled(t, "DeductPoints", mock.Anything, mock.Anything, mock.Anything)
	m.ReceiptRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.AssertNoCommit(t)
	assert.Empty(t, m.EventPublisher.Published)
}

func TestRedemptionService_Redeem_OutOfStockKeepsBalance(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	svc := NewRedemptionService(m.Factory)

	m.UserRepo.On("GetByDiscordIDForUpdate", ctx, int64(TestUserID)).Return(testUser(TestUserID, 100), nil)
	m.RewardRepo.On("GetByID", ctx, int64(TestRewardID)).Return(testReward(10, 0), nil)
	m.InventoryRepo.On("ReserveNext", ctx, int64(TestRewardID), int64(TestUserID)).Return(nil, nil)

	_, err := svc.Redeem(ctx, TestUserID, TestRewardID)

	assert.ErrorIs(t, err, ErrOutOfStock)
	m.UserRepo.AssertNotCalled(t, "DeductPoints", mock.Anything, mock.Anything, mock.Anything)
	m.ReceiptRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.AssertNoCommit(t)
	m.AssertAllExpectations(t)
}

func TestRedemptionService_Redeem_Rejections(t *testing.T) {
	banned := testUser(TestUserID, 100)
	banned.Banned = true
	retired := testReward(10, 0)
	retired.Retired = true

	tests := []struct {
		name        string
		user        *models.User
		reward      *models.RewardDefinition
		expectedErr error
		lookupsItem bool
	}{
		{
			name:        "unknown user",
			user:        nil,
			expectedErr: ErrUserNotFound,
		},
		{
			name:        "banned user",
			user:        banned,
			expectedErr: ErrUserBanned,
		},
		{
			name:        "unknown reward",
			user:        testUser(TestUserID, 100),
			reward:      nil,
			expectedErr: ErrRewardNotFound,
			lookupsItem: true,
		},
		{
			name:        "retired reward",
			user:        testUser(TestUserID, 100),
			reward:      retired,
			expectedErr: ErrRewardNotFound,
			lookupsItem: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m := NewTestMocks()
			svc := NewRedemptionService(m.Factory)

			m.UserRepo.On("GetByDiscordIDForUpdate", ctx, int64(TestUserID)).Return(tt.user, nil)
			if tt.lookupsItem {
				m.RewardRepo.On("GetByID", ctx, int64(TestRewardID)).Return(tt.reward, nil)
			}

			_, err := svc.Redeem(ctx, TestUserID, TestRewardID)

			assert.ErrorIs(t, err, tt.expectedErr)
			m.InventoryRepo.AssertNotCalled(t, "ReserveNext", mock.Anything, mock.Anything, mock.Anything)
			m.AssertNoCommit(t)
			m.AssertAllExpectations(t)
		})
	}
}

func TestRedemptionService_Redeem_FreeRewardMovesNoPoints(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	svc := NewRedemptionService(m.Factory)

	m.UserRepo.On("GetByDiscordIDForUpdate", ctx, int64(TestUserID)).Return(testUser(TestUserID, 0), nil)
	m.RewardRepo.On("GetByID", ctx, int64(TestRewardID)).Return(testReward(10, 100), nil)
	m.InventoryRepo.On("ReserveNext", ctx, int64(TestRewardID), int64(TestUserID)).
		Return(&models.InventoryItem{ID: 9, Payload: "FREE"}, nil)
	expectReceipt(m, ctx, 57)
	m.ExpectCommit()

	result, err := svc.Redeem(ctx, TestUserID, TestRewardID)

	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Receipt.PointsCharged)
	assert.Equal(t, int64(0), result.NewBalance)
	m.UserRepo.AssertNotCalled(t, "DeductPoints", mock.Anything, mock.Anything, mock.Anything)
	m.BalanceHistoryRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	m.AssertAllExpectations(t)
}

func TestRedemptionService_Redeem_ReceiptFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	svc := NewRedemptionService(m.Factory)

	m.UserRepo.On("GetByDiscordIDForUpdate", ctx, int64(TestUserID)).Return(testUser(TestUserID, 12), nil)
	m.RewardRepo.On("GetByID", ctx, int64(TestRewardID)).Return(testReward(10, 0), nil)
	m.InventoryRepo.On("ReserveNext", ctx, int64(TestRewardID), int64(TestUserID)).
		Return(&models.InventoryItem{ID: 1, Payload: "CODE-1"}, nil)
	m.UserRepo.On("DeductPoints", ctx, int64(TestUserID), int64(10)).Return(int64(2), nil)
	m.ReceiptRepo.On("Create", ctx, mock.Anything).Return(errors.New("connection reset"))

	result, err := svc.Redeem(ctx, TestUserID, TestRewardID)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, KindStorageFailure, KindOf(err))
	m.AssertNoCommit(t)
	m.UoW.AssertCalled(t, "Rollback")
	assert.Empty(t, m.EventPublisher.OfType(events.EventTypeRewardRedeemed))
}

func TestRedemptionService_Redeem_CommitFailure(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	svc := NewRedemptionService(m.Factory)

	m.UserRepo.On("GetByDiscordIDForUpdate", ctx, int64(TestUserID)).Return(testUser(TestUserID, 12), nil)
	m.RewardRepo.On("GetByID", ctx, int64(TestRewardID)).Return(testReward(10, 0), nil)
	m.InventoryRepo.On("ReserveNext", ctx, int64(TestRewardID), int64(TestUserID)).
		Return(&models.InventoryItem{ID: 1, Payload: "CODE-1"}, nil)
	m.UserRepo.On("DeductPoints", ctx, int64(TestUserID), int64(10)).Return(int64(2), nil)
	expectReceipt(m, ctx, 58)
	m.BalanceHistoryRepo.On("Record", ctx, mock.Anything).Return(nil)
	m.UoW.On("Commit").Return(errors.New("serialization failure"))

	result, err := svc.Redeem(ctx, TestUserID, TestRewardID)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
	assert.True(t, IsRetryable(err))
}

func TestRedemptionService_ListRewards(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	svc := NewRedemptionService(m.Factory)

	cheap := &models.RewardDefinition{ID: 1, Name: "Basic", Cost: 5}
	premium := &models.RewardDefinition{ID: 2, Name: "Premium", Cost: 20, DiscountPercent: 50}
	m.RewardRepo.On("ListActive", ctx).Return([]*models.RewardDefinition{cheap, premium}, nil)
	m.InventoryRepo.On("CountAvailable", ctx, int64(1)).Return(int64(0), nil)
	m.InventoryRepo.On("CountAvailable", ctx, int64(2)).Return(int64(4), nil)

	entries, err := svc.ListRewards(ctx)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(5), entries[0].EffectivePrice)
	assert.Equal(t, int64(0), entries[0].Available)
	assert.Equal(t, int64(10), entries[1].EffectivePrice)
	assert.Equal(t, int64(4), entries[1].Available)
	m.AssertAllExpectations(t)
}

func TestRedemptionService_ListReceipts_ClampsLimit(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	svc := NewRedemptionService(m.Factory)

	m.ReceiptRepo.On("GetByUser", ctx, int64(TestUserID), defaultReceiptLimit).Return([]*models.PurchaseReceipt{}, nil).Once()
	m.ReceiptRepo.On("GetByUser", ctx, int64(TestUserID), maxReceiptLimit).Return([]*models.PurchaseReceipt{}, nil).Once()

	_, err := svc.ListReceipts(ctx, TestUserID, 0)
	require.NoError(t, err)
	_, err = svc.ListReceipts(ctx, TestUserID, 1000)
	require.NoError(t, err)

	m.AssertAllExpectations(t)
}
