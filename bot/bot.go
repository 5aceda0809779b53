package bot

import (
	"context"
	"fmt"
	"time"

	"ledgerbot/bot/common"
	"ledgerbot/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Discord rejects messages longer than this
const maxMessageLength = 2000

// Upper bound for one command, membership probes included
const commandTimeout = 30 * time.Second

// Config holds bot configuration
type Config struct {
	Token   string
	GuildID string // empty registers commands globally
}

type Bot struct {
	config   Config
	session  *discordgo.Session
	commands *commandSet
}

// NewSession creates a discord session without connecting it
func NewSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsDirectMessages
	return dg, nil
}

// New wires the command surface onto the session and opens the connection
func New(
	config Config,
	session *discordgo.Session,
	userService service.UserService,
	referralService service.ReferralService,
	redemptionService service.RedemptionService,
	adminService service.AdminService,
	settingsService service.SettingsService,
	gate service.MembershipGate,
) (*Bot, error) {
	bot := &Bot{
		config:   config,
		session:  session,
		commands: newCommandSet(userService, referralService, redemptionService, adminService, settingsService, gate),
	}

	session.AddHandler(bot.handleInteraction)

	// Open websocket connection
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		session.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	log.WithField("guildID", config.GuildID).Info("Discord bot connected")
	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand && i.Type != discordgo.InteractionMessageComponent {
		return
	}

	inv, err := parseInvocation(i)
	if err != nil {
		log.Errorf("Error parsing interaction: %v", err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	r, ok := b.commands.routes[inv.name]
	if !ok {
		log.WithField("name", inv.name).Warn("Unknown interaction")
		return
	}

	// Membership probes can outlast Discord's three second response window
	if err := common.DeferResponse(s, i, r.ephemeral); err != nil {
		log.Errorf("Error deferring %s response: %v", inv.name, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	out, err := r.handle(ctx, inv)
	if err != nil {
		botErr := common.FromServiceError(err)
		entry := log.WithFields(log.Fields{
			"discordID":  inv.userID,
			"command":    inv.name,
			"subcommand": inv.sub,
			"error":      err,
		})
		if botErr.System {
			entry.Error(botErr.LogMessage)
		} else {
			entry.Info(botErr.LogMessage)
		}
		common.EditDeferredWithError(s, i, botErr.UserMessage)
		return
	}

	if err := common.EditDeferred(s, i, truncate(out.content), out.components); err != nil {
		log.Errorf("Error responding to %s: %v", inv.name, err)
	}
}

func truncate(content string) string {
	runes := []rune(content)
	if len(runes) <= maxMessageLength {
		return content
	}
	return string(runes[:maxMessageLength-1]) + "…"
}
