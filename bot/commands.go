package bot

import (
	"fmt"

	"ledgerbot/models"

	"github.com/bwmarrin/discordgo"
)

const verifyButtonID = "verify_membership"

var adminPermission int64 = discordgo.PermissionAdministrator

// commandDefinitions returns every slash command the bot serves
func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "start",
			Description: "Register and see what you need to join",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "referrer",
					Description: "The friend who invited you",
					Required:    false,
				},
			},
		},
		{
			Name:        "balance",
			Description: "Check your points",
		},
		{
			Name:        "rewards",
			Description: "Browse the reward catalog",
		},
		{
			Name:        "redeem",
			Description: "Spend points on a reward",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "id",
					Description: "Reward ID from /rewards",
					Required:    true,
				},
			},
		},
		{
			Name:        "receipts",
			Description: "Show your recent purchases",
		},
		{
			Name:        "refer",
			Description: "How referrals work and how many you have",
		},
		{
			Name:        "support",
			Description: "Who to contact for help",
		},
		{
			Name:                     "admin",
			Description:              "Manage rewards, stock and users",
			DefaultMemberPermissions: &adminPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "reward-add",
					Description: "Create a reward",
					Options: []*discordgo.ApplicationCommandOption{
						stringOption("name", "Reward name", true),
						integerOption("cost", "Price in points", true),
						integerOption("discount", "Discount percent (0-100)", false),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "reward-update",
					Description: "Change the price of a reward",
					Options: []*discordgo.ApplicationCommandOption{
						integerOption("id", "Reward ID", true),
						integerOption("cost", "Price in points", true),
						integerOption("discount", "Discount percent (0-100)", false),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "reward-retire",
					Description: "Remove a reward from the catalog",
					Options: []*discordgo.ApplicationCommandOption{
						integerOption("id", "Reward ID", true),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "stock-add",
					Description: "Add single-use codes to a reward",
					Options: []*discordgo.ApplicationCommandOption{
						integerOption("id", "Reward ID", true),
						stringOption("codes", "Codes separated by commas or spaces", true),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "stock",
					Description: "Show stock per reward",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "balance-adjust",
					Description: "Add or remove points",
					Options: []*discordgo.ApplicationCommandOption{
						userOption("user", "User to adjust", true),
						integerOption("delta", "Points to add (negative to remove)", true),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "ban",
					Description: "Block a user from redeeming and referral payouts",
					Options: []*discordgo.ApplicationCommandOption{
						userOption("user", "User to ban", true),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "unban",
					Description: "Lift a ban",
					Options: []*discordgo.ApplicationCommandOption{
						userOption("user", "User to unban", true),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "setting-set",
					Description: "Change a setting",
					Options: []*discordgo.ApplicationCommandOption{
						settingKeyOption(),
						stringOption("value", "New value", true),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "settings",
					Description: "Show every setting",
				},
			},
		},
	}
}

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func integerOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func userOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

func settingKeyOption() *discordgo.ApplicationCommandOption {
	option := stringOption("key", "Setting name", true)
	for _, key := range []string{
		models.SettingRequiredChannels,
		models.SettingReferralReward,
		models.SettingSupportContact,
		models.SettingProofsChannel,
	} {
		option.Choices = append(option.Choices, &discordgo.ApplicationCommandOptionChoice{Name: key, Value: key})
	}
	return option
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	for _, cmd := range commandDefinitions() {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
	}
	return nil
}

func verifyButton() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "I've joined",
					Style:    discordgo.SuccessButton,
					CustomID: verifyButtonID,
				},
			},
		},
	}
}
