package service

import (
	"context"
	"errors"
	"testing"

	"ledgerbot/events"
	"ledgerbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserService_RegisterContact_ExistingUser(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	svc := NewUserService(m.Factory)

	existing := testUser(TestUserID, 40)
	m.UserRepo.On("GetByDiscordID", ctx, int64(TestUserID)).Return(existing, nil)

	user, created, err := svc.RegisterContact(ctx, TestUserID, "user")

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing, user)
	m.UserRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	m.AssertNoCommit(t)
}

func TestUserService_RegisterContact_NewUser(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	svc := NewUserService(m.Factory)

	newUser := testUser(TestUserID, 0)
	m.UserRepo.On("GetByDiscordID", ctx, int64(TestUserID)).Return(nil, nil)
	m.UserRepo.On("Create", ctx, int64(TestUserID), "newuser").Return(newUser, nil)
	m.ExpectCommit()

	user, created, err := svc.RegisterContact(ctx, TestUserID, "newuser")

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(0), user.Points)
	assert.Equal(t, []events.Event{events.UserCreatedEvent{DiscordID: TestUserID, Username: "newuser"}}, m.EventPublisher.Published)
	m.AssertAllExpectations(t)
}

func TestUserService_RegisterContact_CreateError(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	svc := NewUserService(m.Factory)

	m.UserRepo.On("GetByDiscordID", ctx, int64(TestUserID)).Return(nil, nil)
	m.UserRepo.On("Create", ctx, int64(TestUserID), "newuser").Return(nil, errors.New("database error"))

	user, created, err := svc.RegisterContact(ctx, TestUserID, "newuser")

	assert.Nil(t, user)
	assert.False(t, created)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create user")
	m.AssertNoCommit(t)
}

func TestUserService_GetUser(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	svc := NewUserService(m.Factory)

	m.UserRepo.On("GetByDiscordID", ctx, int64(TestUserID)).Return(testUser(TestUserID, 3), nil)
	m.UserRepo.On("GetByDiscordID", ctx, int64(TestOtherUserID)).Return((*models.User)(nil), nil)

	user, err := svc.GetUser(ctx, TestUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.Points)

	_, err = svc.GetUser(ctx, TestOtherUserID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}
