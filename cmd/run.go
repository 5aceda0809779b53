package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"ledgerbot/bot"
	"ledgerbot/config"
	"ledgerbot/database"
	"ledgerbot/events"
	"ledgerbot/repository"
	"ledgerbot/service"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"
)

var skipMigrations bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and serve commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return Run(ctx)
	},
}

func init() {
	runCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply pending migrations on startup")
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting ledgerbot...")

	cfg := config.Get()
	if !rootCmd.PersistentFlags().Changed("log-level") {
		if err := setupLogging(cfg.LogLevel, cfg.Environment); err != nil {
			return err
		}
	}

	if !skipMigrations {
		if err := database.MigrateUp(cfg.GetDatabaseURL()); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	session, err := bot.NewSession(cfg.DiscordToken)
	if err != nil {
		return err
	}
	gateway := bot.NewGateway(session)

	settingsService := service.NewSettingsService(uowFactory)
	if err := settingsService.EnsureDefaults(ctx); err != nil {
		return fmt.Errorf("failed to materialize default settings: %w", err)
	}

	gate := service.NewMembershipGate(uowFactory, settingsService, gateway, cfg.MembershipCheckTimeout)
	userService := service.NewUserService(uowFactory)
	referralService := service.NewReferralService(uowFactory, gate)
	redemptionService := service.NewRedemptionService(uowFactory)
	adminService := service.NewAdminService(uowFactory, settingsService, cfg.AdminDiscordIDs)

	bot.RegisterNotifications(eventBus, gateway)
	bot.RegisterAuditLog(eventBus)

	discordBot, err := bot.New(
		bot.Config{Token: cfg.DiscordToken, GuildID: cfg.GuildID},
		session,
		userService,
		referralService,
		redemptionService,
		adminService,
		settingsService,
		gate,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}

	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"admins":      len(cfg.AdminDiscordIDs),
	}).Info("Bot is running")
	<-ctx.Done()

	log.Info("Shutting down bot...")
	if err := discordBot.Close(); err != nil {
		log.Errorf("Error closing Discord bot: %v", err)
	}

	// Let in-flight notifications finish
	done := make(chan struct{})
	go func() {
		eventBus.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info("Shutdown completed")
	case <-time.After(10 * time.Second):
		log.Warn("Shutdown timeout exceeded")
	}

	return nil
}
