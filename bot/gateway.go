package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ledgerbot/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// discordAPI is the slice of the discordgo session the gateway talks to
type discordAPI interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Gateway answers membership questions and delivers direct messages through Discord.
// A required channel is identified by the ID of the guild the user must belong to.
type Gateway struct {
	api discordAPI
}

// NewGateway creates a gateway on top of a discord session
func NewGateway(api discordAPI) *Gateway {
	return &Gateway{api: api}
}

// IsMember reports whether the user belongs to the guild behind channelID.
// Only a definite "unknown member" answer yields NotMember; everything else that
// fails is Unknown so the gate can fail closed.
func (g *Gateway) IsMember(ctx context.Context, channelID string, discordID int64) (models.MembershipStatus, error) {
	if _, err := strconv.ParseUint(channelID, 10, 64); err != nil {
		return models.MembershipUnknown, fmt.Errorf("channel %q is not a guild id", channelID)
	}

	member, err := g.api.GuildMember(channelID, strconv.FormatInt(discordID, 10), discordgo.WithContext(ctx))
	if err != nil {
		if isUnknownMember(err) {
			return models.MembershipNotMember, nil
		}
		return models.MembershipUnknown, fmt.Errorf("failed to look up guild member: %w", err)
	}

	if member == nil {
		return models.MembershipUnknown, nil
	}

	// Members still on the rules screening have not joined yet
	if member.Pending {
		return models.MembershipNotMember, nil
	}

	return models.MembershipMember, nil
}

// Notify sends a direct message to the user
func (g *Gateway) Notify(ctx context.Context, discordID int64, message string) error {
	channel, err := g.api.UserChannelCreate(strconv.FormatInt(discordID, 10), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}

	if _, err := g.api.ChannelMessageSend(channel.ID, message, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send DM: %w", err)
	}

	log.WithFields(log.Fields{
		"discordID": discordID,
		"channelID": channel.ID,
	}).Debug("Notification delivered")
	return nil
}

func isUnknownMember(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}

	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
			return true
		case discordgo.ErrCodeUnknownGuild:
			// The bot itself is not in that guild; nothing can be said about the user
			return false
		}
	}

	return restErr.Message == nil && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
