package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newGateUnderTest(m *TestMocks, channels []string) (MembershipGate, *MockMembershipChecker) {
	settings := new(MockSettingsService)
	settings.On("RequiredChannels", mock.Anything).Return(channels, nil)
	checker := new(MockMembershipChecker)
	return NewMembershipGate(m.Factory, settings, checker, 50*time.Millisecond), checker
}

func TestMembershipGate_Check_NoChannelsAllows(t *testing.T) {
	m := NewTestMocks()
	gate, checker := newGateUnderTest(m, []string{})

	decision, err := gate.Check(context.Background(), TestUserID)

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.Missing)
	checker.AssertNotCalled(t, "IsMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestMembershipGate_Check_Outcomes(t *testing.T) {
	tests := []struct {
		name                 string
		statuses             map[string]models.MembershipStatus
		errs                 map[string]error
		expectedAllowed      bool
		expectedMissing      []string
		expectedUnverifiable []string
	}{
		{
			name: "member of every channel",
			statuses: map[string]models.MembershipStatus{
				"@news": models.MembershipMember, "@chat": models.MembershipMember, "@deals": models.MembershipMember,
			},
			expectedAllowed: true,
		},
		{
			name: "missing one channel",
			statuses: map[string]models.MembershipStatus{
				"@news": models.MembershipMember, "@chat": models.MembershipNotMember, "@deals": models.MembershipMember,
			},
			expectedMissing: []string{"@chat"},
		},
		{
			name: "unknown status fails closed",
			statuses: map[string]models.MembershipStatus{
				"@news": models.MembershipUnknown, "@chat": models.MembershipMember, "@deals": models.MembershipMember,
			},
			expectedMissing:      []string{"@news"},
			expectedUnverifiable: []string{"@news"},
		},
		{
			name: "probe error fails closed",
			statuses: map[string]models.MembershipStatus{
				"@news": models.MembershipMember, "@chat": models.MembershipUnknown, "@deals": models.MembershipNotMember,
			},
			errs: map[string]error{
				"@chat": errors.New("bot lacks permission"),
			},
			expectedMissing:      []string{"@chat", "@deals"},
			expectedUnverifiable: []string{"@chat"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewTestMocks()
			gate, checker := newGateUnderTest(m, []string{"@news", "@chat", "@deals"})
			for channel, status := range tt.statuses {
				checker.On("IsMember", mock.Anything, channel, int64(TestUserID)).Return(status, tt.errs[channel])
			}

			decision, err := gate.Check(context.Background(), TestUserID)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedAllowed, decision.Allowed)
			assert.Equal(t, tt.expectedMissing, decision.Missing)
			assert.Equal(t, tt.expectedUnverifiable, decision.Unverifiable)
			checker.AssertExpectations(t)
			m.Factory.AssertNotCalled(t, "Create")
		})
	}
}

func TestMembershipGate_Check_TimeoutFailsClosed(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewTestMocks()
	gate, checker := newGateUnderTest(m, []string{"@slow"})
	checker.On("IsMember", mock.Anything, "@slow", int64(TestUserID)).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(models.MembershipMember, nil)

	start := time.Now()
	decision, err := gate.Check(context.Background(), TestUserID)

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, []string{"@slow"}, decision.Missing)
	assert.Equal(t, []string{"@slow"}, decision.Unverifiable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestMembershipGate_Check_SettingsFailure(t *testing.T) {
	m := NewTestMocks()
	settings := new(MockSettingsService)
	settings.On("RequiredChannels", mock.Anything).Return(nil, errors.New("malformed channel list"))
	gate := NewMembershipGate(m.Factory, settings, new(MockMembershipChecker), time.Second)

	decision, err := gate.Check(context.Background(), TestUserID)

	assert.Nil(t, decision)
	require.Error(t, err)
}

func TestMembershipGate_Verify_PersistsOutcome(t *testing.T) {
	for _, member := range []bool{true, false} {
		ctx := context.Background()
		m := NewTestMocks()
		gate, checker := newGateUnderTest(m, []string{"@news"})

		status := models.MembershipNotMember
		if member {
			status = models.MembershipMember
		}
		checker.On("IsMember", mock.Anything, "@news", int64(TestUserID)).Return(status, nil)
		m.UserRepo.On("SetMembershipVerified", ctx, int64(TestUserID), member).Return(nil)
		m.ExpectCommit()

		decision, err := gate.Verify(ctx, TestUserID)

		require.NoError(t, err)
		assert.Equal(t, member, decision.Allowed)
		m.AssertAllExpectations(t)
	}
}

func TestMembershipGate_Require_TrustsVerifiedFlag(t *testing.T) {
	m := NewTestMocks()
	gate, checker := newGateUnderTest(m, []string{"@news"})

	user := testUser(TestUserID, 0)
	user.MembershipVerified = true

	decision, err := gate.Require(context.Background(), user)

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	checker.AssertNotCalled(t, "IsMember", mock.Anything, mock.Anything, mock.Anything)
	m.Factory.AssertNotCalled(t, "Create")
}

func TestMembershipGate_Require_RechecksWhenUnverified(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	gate, checker := newGateUnderTest(m, []string{"@news"})

	checker.On("IsMember", mock.Anything, "@news", int64(TestUserID)).Return(models.MembershipMember, nil)
	m.UserRepo.On("SetMembershipVerified", ctx, int64(TestUserID), true).Return(nil)
	m.ExpectCommit()

	decision, err := gate.Require(ctx, testUser(TestUserID, 0))

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	checker.AssertNumberOfCalls(t, "IsMember", 1)
}
