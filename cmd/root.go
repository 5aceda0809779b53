package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "ledgerbot",
	Short: "Points ledger and reward redemption bot",
	Long: `ledgerbot runs a Discord bot that credits referral points and lets users
exchange them for single-use reward codes.

Available commands:
  run     - Connect to Discord and serve commands
  migrate - Apply or roll back database migrations
  admin   - Operator tools for rewards, stock and users`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(logLevel, os.Getenv("ENVIRONMENT"))
	},
}

func init() {
	defaultLevel := os.Getenv("LOG_LEVEL")
	if defaultLevel == "" {
		defaultLevel = "info"
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLevel, "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd, migrateCmd, adminCmd)
}

// Execute runs the command tree
func Execute() error {
	return rootCmd.Execute()
}

func setupLogging(level, environment string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(parsed)

	if environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
