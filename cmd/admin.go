package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ledgerbot/database"
	"ledgerbot/events"
	"ledgerbot/repository"
	"ledgerbot/service"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"
)

// adminServices are the core services the operator commands act through.
// Operators reach the database directly, so no Discord authorization applies.
type adminServices struct {
	admin    service.AdminService
	settings service.SettingsService
	close    func()
}

func openAdminServices(ctx context.Context) (*adminServices, error) {
	db, err := database.NewConnection(ctx, database.MigrationDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	bus := events.NewBus()
	factory := repository.NewUnitOfWorkFactory(db, bus)
	settings := service.NewSettingsService(factory)
	if err := settings.EnsureDefaults(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to materialize default settings: %w", err)
	}

	return &adminServices{
		admin:    service.NewAdminService(factory, settings, nil),
		settings: settings,
		close: func() {
			bus.Wait()
			db.Close()
		},
	}, nil
}

// withAdmin opens the services for the duration of one command
func withAdmin(run func(ctx context.Context, svc *adminServices, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := openAdminServices(ctx)
		if err != nil {
			return err
		}
		defer svc.close()
		return run(ctx, svc, args)
	}
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Operator tools for rewards, stock and users",
}

var rewardDiscount int

var addRewardCmd = &cobra.Command{
	Use:   "add-reward <name> <cost>",
	Short: "Create a reward",
	Args:  cobra.ExactArgs(2),
	RunE: withAdmin(func(ctx context.Context, svc *adminServices, args []string) error {
		cost, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid cost %q: %w", args[1], err)
		}
		reward, err := svc.admin.CreateReward(ctx, args[0], cost, rewardDiscount)
		if err != nil {
			return err
		}
		fmt.Printf("Created reward #%d %s (price %d)\n", reward.ID, reward.Name, reward.EffectivePrice())
		return nil
	}),
}

var stockFile string

var addStockCmd = &cobra.Command{
	Use:   "add-stock <reward-id> [codes...]",
	Short: "Add single-use codes from arguments or a file (one per line)",
	Args:  cobra.MinimumNArgs(1),
	RunE: withAdmin(func(ctx context.Context, svc *adminServices, args []string) error {
		rewardID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid reward id %q: %w", args[0], err)
		}

		codes := args[1:]
		if stockFile != "" {
			fromFile, err := readCodesFile(stockFile)
			if err != nil {
				return err
			}
			codes = append(codes, fromFile...)
		}

		added, err := svc.admin.AddInventory(ctx, rewardID, codes)
		if err != nil {
			return err
		}
		fmt.Printf("Added %d units to reward #%d\n", added, rewardID)
		return nil
	}),
}

var adjustBalanceCmd = &cobra.Command{
	Use:   "adjust-balance <discord-id> <delta>",
	Short: "Add or remove points",
	Args:  cobra.ExactArgs(2),
	RunE: withAdmin(func(ctx context.Context, svc *adminServices, args []string) error {
		discordID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid discord id %q: %w", args[0], err)
		}
		delta, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid delta %q: %w", args[1], err)
		}
		balance, err := svc.admin.AdjustBalance(ctx, discordID, delta)
		if err != nil {
			return err
		}
		fmt.Printf("User %d now has %d points\n", discordID, balance)
		return nil
	}),
}

func banCommand(use string, banned bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <discord-id>",
		Short: fmt.Sprintf("Set banned=%t for a user", banned),
		Args:  cobra.ExactArgs(1),
		RunE: withAdmin(func(ctx context.Context, svc *adminServices, args []string) error {
			discordID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid discord id %q: %w", args[0], err)
			}
			if err := svc.admin.SetBanned(ctx, discordID, banned); err != nil {
				return err
			}
			log.WithFields(log.Fields{"discordID": discordID, "banned": banned}).Info("Ban flag updated")
			return nil
		}),
	}
}

var setSettingCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE: withAdmin(func(ctx context.Context, svc *adminServices, args []string) error {
		return svc.admin.SetSetting(ctx, args[0], args[1])
	}),
}

var importCmd = &cobra.Command{
	Use:   "import <catalog.yaml>",
	Short: "Create or update rewards, stock and settings from a YAML catalog",
	Args:  cobra.ExactArgs(1),
	RunE: withAdmin(func(ctx context.Context, svc *adminServices, args []string) error {
		catalog, err := loadCatalog(args[0])
		if err != nil {
			return err
		}
		summary, err := importCatalog(ctx, svc.admin, svc.settings, catalog)
		if err != nil {
			return err
		}
		fmt.Printf("Created %d, updated %d rewards; added %d units; changed %d settings\n",
			summary.Created, summary.Updated, summary.UnitsAdded, summary.SettingsChanged)
		return nil
	}),
}

func init() {
	addRewardCmd.Flags().IntVar(&rewardDiscount, "discount", 0, "Discount percent (0-100)")
	addStockCmd.Flags().StringVar(&stockFile, "file", "", "File with one code per line")

	adminCmd.AddCommand(
		addRewardCmd,
		addStockCmd,
		adjustBalanceCmd,
		banCommand("ban", true),
		banCommand("unban", false),
		setSettingCmd,
		importCmd,
	)
}

// readCodesFile reads one code per line, skipping blanks and # comments
func readCodesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open codes file: %w", err)
	}
	defer f.Close()

	var codes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		codes = append(codes, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read codes file: %w", err)
	}
	return codes, nil
}
