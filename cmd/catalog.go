package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ledgerbot/models"
	"ledgerbot/service"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// catalogFile is the operator facing description of rewards and settings
type catalogFile struct {
	Settings catalogSettings `yaml:"settings"`
	Rewards  []catalogReward `yaml:"rewards"`
}

type catalogSettings struct {
	RequiredChannels []string `yaml:"required_channels"`
	ReferralReward   *int64   `yaml:"referral_reward"`
	SupportContact   *string  `yaml:"support_contact"`
	ProofsChannel    *string  `yaml:"proofs_channel"`
}

type catalogReward struct {
	Name      string   `yaml:"name"`
	Cost      int64    `yaml:"cost"`
	Discount  int      `yaml:"discount"`
	Codes     []string `yaml:"codes"`
	CodesFile string   `yaml:"codes_file"` // relative to the catalog file
}

type importSummary struct {
	Created         int
	Updated         int
	UnitsAdded      int64
	SettingsChanged int
}

// loadCatalog reads a catalog and resolves codes files next to it
func loadCatalog(path string) (*catalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	catalog, err := parseCatalog(data)
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(path)
	for i := range catalog.Rewards {
		reward := &catalog.Rewards[i]
		if reward.CodesFile == "" {
			continue
		}
		codesPath := reward.CodesFile
		if !filepath.IsAbs(codesPath) {
			codesPath = filepath.Join(baseDir, codesPath)
		}
		codes, err := readCodesFile(codesPath)
		if err != nil {
			return nil, fmt.Errorf("reward %q: %w", reward.Name, err)
		}
		reward.Codes = append(reward.Codes, codes...)
	}

	return catalog, nil
}

func parseCatalog(data []byte) (*catalogFile, error) {
	var catalog catalogFile
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool)
	for i, reward := range catalog.Rewards {
		name := strings.TrimSpace(reward.Name)
		if name == "" {
			return nil, fmt.Errorf("reward %d has no name", i+1)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, fmt.Errorf("reward %q is listed twice", name)
		}
		seen[key] = true
		catalog.Rewards[i].Name = name
	}

	return &catalog, nil
}

// importCatalog applies settings first, then creates or updates every reward and adds its codes.
// Codes are always appended; importing the same file twice adds the codes twice.
func importCatalog(ctx context.Context, admin service.AdminService, settings service.SettingsService, catalog *catalogFile) (*importSummary, error) {
	summary := &importSummary{}

	if catalog.Settings.RequiredChannels != nil {
		if err := settings.SetRequiredChannels(ctx, catalog.Settings.RequiredChannels); err != nil {
			return summary, err
		}
		summary.SettingsChanged++
	}
	if catalog.Settings.ReferralReward != nil {
		if err := settings.SetReferralReward(ctx, *catalog.Settings.ReferralReward); err != nil {
			return summary, err
		}
		summary.SettingsChanged++
	}
	for key, value := range map[string]*string{
		models.SettingSupportContact: catalog.Settings.SupportContact,
		models.SettingProofsChannel:  catalog.Settings.ProofsChannel,
	} {
		if value == nil {
			continue
		}
		if err := settings.Set(ctx, key, *value); err != nil {
			return summary, err
		}
		summary.SettingsChanged++
	}

	for _, entry := range catalog.Rewards {
		reward, err := admin.FindReward(ctx, entry.Name)
		switch {
		case errors.Is(err, service.ErrRewardNotFound):
			reward, err = admin.CreateReward(ctx, entry.Name, entry.Cost, entry.Discount)
			if err != nil {
				return summary, fmt.Errorf("reward %q: %w", entry.Name, err)
			}
			summary.Created++
		case err != nil:
			return summary, fmt.Errorf("reward %q: %w", entry.Name, err)
		case reward.Retired:
			return summary, fmt.Errorf("reward %q is retired", entry.Name)
		default:
			if reward.Cost != entry.Cost || reward.DiscountPercent != entry.Discount {
				reward, err = admin.UpdateReward(ctx, reward.ID, entry.Cost, entry.Discount)
				if err != nil {
					return summary, fmt.Errorf("reward %q: %w", entry.Name, err)
				}
				summary.Updated++
			}
		}

		if len(entry.Codes) == 0 {
			continue
		}
		added, err := admin.AddInventory(ctx, reward.ID, entry.Codes)
		if err != nil {
			return summary, fmt.Errorf("reward %q: %w", entry.Name, err)
		}
		summary.UnitsAdded += added

		log.WithFields(log.Fields{
			"rewardID": reward.ID,
			"name":     reward.Name,
			"added":    added,
		}).Info("Imported reward stock")
	}

	return summary, nil
}
