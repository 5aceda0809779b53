package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"ledgerbot/bot/common"
	"ledgerbot/models"
	"ledgerbot/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const receiptsShown = 10

// invocation is a parsed slash command or button press
type invocation struct {
	userID   int64
	username string
	name     string // command name or button custom ID
	sub      string // admin subcommand
	options  map[string]*discordgo.ApplicationCommandInteractionDataOption
}

// reply is what a handler wants shown to the user
type reply struct {
	content    string
	components []discordgo.MessageComponent
}

type route struct {
	handle    func(ctx context.Context, inv *invocation) (*reply, error)
	ephemeral bool
}

// commandSet holds the core services behind every command
type commandSet struct {
	users      service.UserService
	referral   service.ReferralService
	redemption service.RedemptionService
	admin      service.AdminService
	settings   service.SettingsService
	gate       service.MembershipGate
	routes     map[string]route
}

func newCommandSet(
	users service.UserService,
	referral service.ReferralService,
	redemption service.RedemptionService,
	admin service.AdminService,
	settings service.SettingsService,
	gate service.MembershipGate,
) *commandSet {
	c := &commandSet{
		users:      users,
		referral:   referral,
		redemption: redemption,
		admin:      admin,
		settings:   settings,
		gate:       gate,
	}

	c.routes = map[string]route{
		"start":        {handle: c.handleStart, ephemeral: true},
		verifyButtonID: {handle: c.handleVerify, ephemeral: true},
		"balance":      {handle: c.handleBalance, ephemeral: true},
		"rewards":      {handle: c.handleRewards},
		"redeem":       {handle: c.handleRedeem, ephemeral: true},
		"receipts":     {handle: c.handleReceipts, ephemeral: true},
		"refer":        {handle: c.handleRefer, ephemeral: true},
		"support":      {handle: c.handleSupport, ephemeral: true},
		"admin":        {handle: c.handleAdmin, ephemeral: true},
	}
	return c
}

// parseInvocation extracts the caller and options from an interaction
func parseInvocation(i *discordgo.InteractionCreate) (*invocation, error) {
	var user *discordgo.User
	switch {
	case i.Member != nil && i.Member.User != nil:
		user = i.Member.User
	case i.User != nil:
		user = i.User
	default:
		return nil, fmt.Errorf("interaction has no user")
	}

	userID, err := strconv.ParseInt(user.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid discord id %q: %w", user.ID, err)
	}

	inv := &invocation{
		userID:   userID,
		username: user.Username,
		options:  make(map[string]*discordgo.ApplicationCommandInteractionDataOption),
	}

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		inv.name = i.MessageComponentData().CustomID
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		inv.name = data.Name
		options := data.Options
		if len(options) == 1 && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
			inv.sub = options[0].Name
			options = options[0].Options
		}
		for _, opt := range options {
			inv.options[opt.Name] = opt
		}
	default:
		return nil, fmt.Errorf("unsupported interaction type %v", i.Type)
	}

	return inv, nil
}

func (inv *invocation) intOption(name string) (int64, bool) {
	opt, ok := inv.options[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionInteger {
		return 0, false
	}
	return opt.IntValue(), true
}

func (inv *invocation) stringOption(name string) (string, bool) {
	opt, ok := inv.options[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionString {
		return "", false
	}
	return opt.StringValue(), true
}

func (inv *invocation) userOption(name string) (int64, bool) {
	opt, ok := inv.options[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionUser {
		return 0, false
	}
	raw, ok := opt.Value.(string)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (inv *invocation) requireInt(name string) (int64, error) {
	value, ok := inv.intOption(name)
	if !ok {
		return 0, common.NewUserError(fmt.Sprintf("Option `%s` is required.", name), "missing option "+name)
	}
	return value, nil
}

func (inv *invocation) requireUser(name string) (int64, error) {
	value, ok := inv.userOption(name)
	if !ok {
		return 0, common.NewUserError(fmt.Sprintf("Option `%s` is required.", name), "missing option "+name)
	}
	return value, nil
}

func (c *commandSet) handleStart(ctx context.Context, inv *invocation) (*reply, error) {
	user, created, err := c.users.RegisterContact(ctx, inv.userID, inv.username)
	if err != nil {
		return nil, err
	}
	if user.Banned {
		return nil, service.ErrUserBanned
	}

	// Referrals only count at first contact
	if referrerID, ok := inv.userOption("referrer"); ok && created {
		attached, err := c.referral.AttachReferrer(ctx, inv.userID, referrerID)
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{
			"discordID":  inv.userID,
			"referrerID": referrerID,
			"attached":   attached,
		}).Debug("Processed referrer on start")
	}

	greeting := "👋 Welcome back!"
	if created {
		greeting = "👋 Welcome! You start with **0** points. Invite friends with `/refer` to earn more."
	}

	if user.MembershipVerified {
		return &reply{content: greeting + "\nBrowse the catalog with `/rewards`."}, nil
	}

	channels, err := c.settings.RequiredChannels(ctx)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return &reply{
			content:    greeting + "\nPress the button below to activate your account.",
			components: verifyButton(),
		}, nil
	}

	return &reply{
		content: fmt.Sprintf("%s\nJoin these servers, then press the button:\n%s",
			greeting, common.FormatChannelList(channels)),
		components: verifyButton(),
	}, nil
}

func (c *commandSet) handleVerify(ctx context.Context, inv *invocation) (*reply, error) {
	result, err := c.referral.VerifyAndSettle(ctx, inv.userID)
	if err != nil {
		return nil, err
	}
	if !result.Decision.Allowed {
		return missingChannelsReply(result.Decision), nil
	}
	return &reply{content: "✅ You're all set! Browse the catalog with `/rewards`."}, nil
}

func missingChannelsReply(decision *models.MembershipDecision) *reply {
	content := fmt.Sprintf("You still need to join:\n%s", common.FormatChannelList(decision.Missing))
	if len(decision.Unverifiable) > 0 {
		content += "\nSome servers could not be checked right now; try again in a moment."
	}
	return &reply{content: content, components: verifyButton()}
}

func (c *commandSet) handleBalance(ctx context.Context, inv *invocation) (*reply, error) {
	user, _, err := c.users.RegisterContact(ctx, inv.userID, inv.username)
	if err != nil {
		return nil, err
	}
	return &reply{content: fmt.Sprintf("Your balance: **%s** points", common.FormatPoints(user.Points))}, nil
}

func (c *commandSet) handleRewards(ctx context.Context, inv *invocation) (*reply, error) {
	entries, err := c.redemption.ListRewards(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &reply{content: "The catalog is empty right now."}, nil
	}

	var b strings.Builder
	b.WriteString("🛒 **Rewards**\n")
	for _, entry := range entries {
		stock := fmt.Sprintf("%d in stock", entry.Available)
		if entry.Available == 0 {
			stock = "sold out"
		}
		fmt.Fprintf(&b, "`#%d` **%s** · %s · %s\n", entry.Reward.ID, entry.Reward.Name, common.FormatPrice(entry), stock)
	}
	b.WriteString("Redeem with `/redeem id:<number>`.")
	return &reply{content: b.String()}, nil
}

func (c *commandSet) handleRedeem(ctx context.Context, inv *invocation) (*reply, error) {
	rewardID, err := inv.requireInt("id")
	if err != nil {
		return nil, err
	}

	user, err := c.users.GetUser(ctx, inv.userID)
	if err != nil {
		return nil, err
	}
	if user.Banned {
		return nil, service.ErrUserBanned
	}

	decision, err := c.gate.Require(ctx, user)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return missingChannelsReply(decision), nil
	}

	result, err := c.redemption.Redeem(ctx, inv.userID, rewardID)
	if err != nil {
		return nil, err
	}

	return &reply{content: fmt.Sprintf(
		"✅ You bought **%s** for %s points.\nYour code: ||`%s`||\nReceipt `%s` · balance **%s** points",
		result.RewardName, common.FormatPoints(result.Receipt.PointsCharged), result.Payload,
		result.Receipt.Reference, common.FormatPoints(result.NewBalance))}, nil
}

func (c *commandSet) handleReceipts(ctx context.Context, inv *invocation) (*reply, error) {
	receipts, err := c.redemption.ListReceipts(ctx, inv.userID, receiptsShown)
	if err != nil {
		return nil, err
	}
	if len(receipts) == 0 {
		return &reply{content: "You have not redeemed anything yet."}, nil
	}

	var b strings.Builder
	b.WriteString("🧾 **Recent purchases**\n")
	for _, receipt := range receipts {
		fmt.Fprintf(&b, "%s · reward `#%d` · %s points · `%s`\n",
			common.FormatDiscordTimestamp(receipt.CreatedAt, "f"), receipt.RewardID,
			common.FormatPoints(receipt.PointsCharged), receipt.Reference)
	}
	return &reply{content: strings.TrimSuffix(b.String(), "\n")}, nil
}

func (c *commandSet) handleRefer(ctx context.Context, inv *invocation) (*reply, error) {
	info, err := c.referral.ReferralInfo(ctx, inv.userID)
	if err != nil {
		return nil, err
	}
	return &reply{content: fmt.Sprintf(
		"Invite friends with `/start referrer:@%s`.\nYou earn **%s** points for each friend who joins the required servers.\nPaid referrals: **%d** · pending: **%d**",
		inv.username, common.FormatPoints(info.RewardPerReferral), info.PaidReferrals, info.PendingReferrals)}, nil
}

func (c *commandSet) handleSupport(ctx context.Context, inv *invocation) (*reply, error) {
	contact, err := c.settings.Get(ctx, models.SettingSupportContact)
	if err != nil {
		return nil, err
	}
	return &reply{content: fmt.Sprintf("Need help? Contact %s.", contact)}, nil
}

func (c *commandSet) handleAdmin(ctx context.Context, inv *invocation) (*reply, error) {
	if err := c.admin.Authorize(inv.userID); err != nil {
		return nil, err
	}

	switch inv.sub {
	case "reward-add":
		name, _ := inv.stringOption("name")
		cost, err := inv.requireInt("cost")
		if err != nil {
			return nil, err
		}
		discount, _ := inv.intOption("discount")
		reward, err := c.admin.CreateReward(ctx, name, cost, int(discount))
		if err != nil {
			return nil, err
		}
		return &reply{content: fmt.Sprintf("Created reward `#%d` **%s** at %s points.",
			reward.ID, reward.Name, common.FormatPoints(reward.EffectivePrice()))}, nil

	case "reward-update":
		rewardID, err := inv.requireInt("id")
		if err != nil {
			return nil, err
		}
		cost, err := inv.requireInt("cost")
		if err != nil {
			return nil, err
		}
		discount, _ := inv.intOption("discount")
		reward, err := c.admin.UpdateReward(ctx, rewardID, cost, int(discount))
		if err != nil {
			return nil, err
		}
		return &reply{content: fmt.Sprintf("Reward `#%d` now costs %s points.",
			reward.ID, common.FormatPoints(reward.EffectivePrice()))}, nil

	case "reward-retire":
		rewardID, err := inv.requireInt("id")
		if err != nil {
			return nil, err
		}
		if err := c.admin.RetireReward(ctx, rewardID); err != nil {
			return nil, err
		}
		return &reply{content: fmt.Sprintf("Reward `#%d` retired.", rewardID)}, nil

	case "stock-add":
		rewardID, err := inv.requireInt("id")
		if err != nil {
			return nil, err
		}
		raw, _ := inv.stringOption("codes")
		added, err := c.admin.AddInventory(ctx, rewardID, splitCodes(raw))
		if err != nil {
			return nil, err
		}
		return &reply{content: fmt.Sprintf("Added %d units to reward `#%d`.", added, rewardID)}, nil

	case "stock":
		counts, err := c.redemption.StockCounts(ctx)
		if err != nil {
			return nil, err
		}
		if len(counts) == 0 {
			return &reply{content: "No rewards yet."}, nil
		}
		var b strings.Builder
		for _, count := range counts {
			fmt.Fprintf(&b, "`#%d` **%s** · %d available · %d redeemed\n",
				count.RewardID, count.RewardName, count.Available, count.Consumed)
		}
		return &reply{content: strings.TrimSuffix(b.String(), "\n")}, nil

	case "balance-adjust":
		target, err := inv.requireUser("user")
		if err != nil {
			return nil, err
		}
		delta, err := inv.requireInt("delta")
		if err != nil {
			return nil, err
		}
		balance, err := c.admin.AdjustBalance(ctx, target, delta)
		if err != nil {
			return nil, targetError(target, err)
		}
		return &reply{content: fmt.Sprintf("<@%d> now has **%s** points.", target, common.FormatPoints(balance))}, nil

	case "ban", "unban":
		target, err := inv.requireUser("user")
		if err != nil {
			return nil, err
		}
		banned := inv.sub == "ban"
		if err := c.admin.SetBanned(ctx, target, banned); err != nil {
			return nil, targetError(target, err)
		}
		if banned {
			return &reply{content: fmt.Sprintf("<@%d> is banned.", target)}, nil
		}
		return &reply{content: fmt.Sprintf("<@%d> is no longer banned.", target)}, nil

	case "setting-set":
		key, _ := inv.stringOption("key")
		value, _ := inv.stringOption("value")
		if err := c.admin.SetSetting(ctx, key, value); err != nil {
			return nil, err
		}
		return &reply{content: fmt.Sprintf("Setting `%s` updated.", key)}, nil

	case "settings":
		all, err := c.settings.All(ctx)
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(all))
		for key := range all {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, key := range keys {
			fmt.Fprintf(&b, "`%s` = `%s`\n", key, all[key])
		}
		return &reply{content: strings.TrimSuffix(b.String(), "\n")}, nil
	}

	return nil, common.NewUserError("Unknown admin command.", "unknown admin subcommand "+inv.sub)
}

// splitCodes splits an admin supplied list of codes on commas and whitespace
// targetError phrases user-level failures about the admin's target, not the admin
func targetError(target int64, err error) error {
	var message string
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		message = fmt.Sprintf("<@%d> has not registered yet.", target)
	case errors.Is(err, service.ErrInsufficientPoints):
		message = fmt.Sprintf("<@%d> does not have enough points for that adjustment.", target)
	default:
		return err
	}
	return &common.BotError{UserMessage: message, LogMessage: "admin target rejected", Err: err}
}

func splitCodes(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
}
