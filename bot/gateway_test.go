package bot

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"ledgerbot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDiscord implements discordAPI for testing
type fakeDiscord struct {
	Member     *discordgo.Member
	MemberErr  error
	ChannelErr error
	SendErr    error

	MemberLookups []string
	Sent          []string
}

func (f *fakeDiscord) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	f.MemberLookups = append(f.MemberLookups, guildID+"/"+userID)
	return f.Member, f.MemberErr
}

func (f *fakeDiscord) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.ChannelErr != nil {
		return nil, f.ChannelErr
	}
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (f *fakeDiscord) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.SendErr != nil {
		return nil, f.SendErr
	}
	f.Sent = append(f.Sent, channelID+": "+content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func restError(status, code int) error {
	restErr := &discordgo.RESTError{Response: &http.Response{StatusCode: status}}
	if code != 0 {
		restErr.Message = &discordgo.APIErrorMessage{Code: code}
	}
	return restErr
}

func TestGateway_IsMember(t *testing.T) {
	tests := []struct {
		name      string
		member    *discordgo.Member
		err       error
		expected  models.MembershipStatus
		expectErr bool
	}{
		{name: "member", member: &discordgo.Member{}, expected: models.MembershipMember},
		{name: "pending screening", member: &discordgo.Member{Pending: true}, expected: models.MembershipNotMember},
		{name: "unknown member", err: restError(http.StatusNotFound, discordgo.ErrCodeUnknownMember), expected: models.MembershipNotMember},
		{name: "bare 404", err: restError(http.StatusNotFound, 0), expected: models.MembershipNotMember},
		{name: "bot not in guild", err: restError(http.StatusNotFound, discordgo.ErrCodeUnknownGuild), expected: models.MembershipUnknown, expectErr: true},
		{name: "forbidden", err: restError(http.StatusForbidden, discordgo.ErrCodeMissingAccess), expected: models.MembershipUnknown, expectErr: true},
		{name: "network failure", err: errors.New("connection reset"), expected: models.MembershipUnknown, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeDiscord{Member: tt.member, MemberErr: tt.err}
			gateway := NewGateway(api)

			status, err := gateway.IsMember(context.Background(), "123456789", 42)

			assert.Equal(t, tt.expected, status)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, []string{"123456789/42"}, api.MemberLookups)
		})
	}
}

func TestGateway_IsMember_RejectsNonGuildChannel(t *testing.T) {
	api := &fakeDiscord{Member: &discordgo.Member{}}
	gateway := NewGateway(api)

	status, err := gateway.IsMember(context.Background(), "@news", 42)

	assert.Error(t, err)
	assert.Equal(t, models.MembershipUnknown, status)
	assert.Empty(t, api.MemberLookups)
}

func TestGateway_Notify(t *testing.T) {
	api := &fakeDiscord{}
	gateway := NewGateway(api)

	require.NoError(t, gateway.Notify(context.Background(), 42, "hello"))
	assert.Equal(t, []string{"dm-42: hello"}, api.Sent)

	api.SendErr = errors.New("cannot send messages to this user")
	assert.Error(t, gateway.Notify(context.Background(), 42, "again"))

	api.ChannelErr = errors.New("unknown user")
	assert.Error(t, gateway.Notify(context.Background(), 42, "again"))
}
