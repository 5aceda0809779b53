package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ledgerbot/models"

	log "github.com/sirupsen/logrus"
)

// settingsService implements the SettingsService interface
type settingsService struct {
	uowFactory UnitOfWorkFactory
}

// NewSettingsService creates a new settings registry backed by the settings table
func NewSettingsService(uowFactory UnitOfWorkFactory) SettingsService {
	return &settingsService{
		uowFactory: uowFactory,
	}
}

// Get returns the stored value, falling back to the documented default
func (s *settingsService) Get(ctx context.Context, key string) (string, error) {
	defaultValue, known := models.DefaultSettings[key]
	if !known {
		return "", invalidInput("unknown setting %q", key)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	setting, err := uow.SettingsRepository().Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	if setting == nil {
		return defaultValue, nil
	}
	return setting.Value, nil
}

// Set validates and stores a value; last write wins
func (s *settingsService) Set(ctx context.Context, key, value string) error {
	normalized, err := normalizeSetting(key, value)
	if err != nil {
		return err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.SettingsRepository().Set(ctx, key, normalized); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"key":   key,
		"value": normalized,
	}).Info("Setting updated")

	return nil
}

// EnsureDefaults stores the default for every key that has no value yet
func (s *settingsService) EnsureDefaults(ctx context.Context) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	keys := make([]string, 0, len(models.DefaultSettings))
	for key := range models.DefaultSettings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		inserted, err := uow.SettingsRepository().InsertIfAbsent(ctx, key, models.DefaultSettings[key])
		if err != nil {
			return fmt.Errorf("failed to materialize default for %s: %w", key, err)
		}
		if inserted {
			log.WithField("key", key).Info("Materialized default setting")
		}
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// All returns every known key with its effective value
func (s *settingsService) All(ctx context.Context) (map[string]string, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stored, err := uow.SettingsRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}

	result := make(map[string]string, len(models.DefaultSettings))
	for key, value := range models.DefaultSettings {
		result[key] = value
	}
	for _, setting := range stored {
		if _, known := result[setting.Key]; known {
			result[setting.Key] = setting.Value
		}
	}
	return result, nil
}

// RequiredChannels returns the channels a user must join, in configured order
func (s *settingsService) RequiredChannels(ctx context.Context) ([]string, error) {
	raw, err := s.Get(ctx, models.SettingRequiredChannels)
	if err != nil {
		return nil, err
	}
	return parseChannelList(raw)
}

func (s *settingsService) SetRequiredChannels(ctx context.Context, channels []string) error {
	encoded, err := json.Marshal(cleanChannels(channels))
	if err != nil {
		return fmt.Errorf("failed to encode channels: %w", err)
	}
	return s.Set(ctx, models.SettingRequiredChannels, string(encoded))
}

// ReferralReward returns the points credited to a referrer per verified referral
func (s *settingsService) ReferralReward(ctx context.Context) (int64, error) {
	raw, err := s.Get(ctx, models.SettingReferralReward)
	if err != nil {
		return 0, err
	}
	return parseReferralReward(raw), nil
}

func (s *settingsService) SetReferralReward(ctx context.Context, amount int64) error {
	return s.Set(ctx, models.SettingReferralReward, strconv.FormatInt(amount, 10))
}

// normalizeSetting validates a value for its key and returns the canonical stored form
func normalizeSetting(key, value string) (string, error) {
	if _, known := models.DefaultSettings[key]; !known {
		return "", invalidInput("unknown setting %q", key)
	}

	value = strings.TrimSpace(value)
	switch key {
	case models.SettingRequiredChannels:
		channels, err := parseChannelList(value)
		if err != nil {
			return "", invalidInput("required_channels must be a JSON array of channel names")
		}
		encoded, err := json.Marshal(channels)
		if err != nil {
			return "", fmt.Errorf("failed to encode channels: %w", err)
		}
		return string(encoded), nil
	case models.SettingReferralReward:
		amount, err := strconv.ParseInt(value, 10, 64)
		if err != nil || amount < 0 {
			return "", invalidInput("referral_reward must be a non-negative integer")
		}
		return strconv.FormatInt(amount, 10), nil
	default:
		return value, nil
	}
}

func parseChannelList(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	var channels []string
	if err := json.Unmarshal([]byte(raw), &channels); err != nil {
		return nil, fmt.Errorf("malformed channel list: %w", err)
	}
	return cleanChannels(channels), nil
}

// cleanChannels trims entries and drops blanks and duplicates, keeping first occurrence order
func cleanChannels(channels []string) []string {
	seen := make(map[string]bool, len(channels))
	cleaned := make([]string, 0, len(channels))
	for _, channel := range channels {
		channel = strings.TrimSpace(channel)
		if channel == "" || seen[channel] {
			continue
		}
		seen[channel] = true
		cleaned = append(cleaned, channel)
	}
	return cleaned
}

// parseReferralReward falls back to the default amount when the stored value is unusable
func parseReferralReward(raw string) int64 {
	amount, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || amount < 0 {
		log.WithField("value", raw).Warn("Invalid referral_reward setting, using default")
		fallback, _ := strconv.ParseInt(models.DefaultSettings[models.SettingReferralReward], 10, 64)
		return fallback
	}
	return amount
}
