package models

import (
	"time"
)

// Setting keys understood by the settings registry
const (
	SettingRequiredChannels = "required_channels"
	SettingReferralReward   = "referral_reward"
	SettingSupportContact   = "support_contact"
	SettingProofsChannel    = "proofs_channel"
)

// DefaultSettings are materialized on first startup when absent
var DefaultSettings = map[string]string{
	SettingRequiredChannels: "[]",
	SettingReferralReward:   "1",
	SettingSupportContact:   "@Support",
	SettingProofsChannel:    "",
}

// Setting is a single configuration entry
type Setting struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}
