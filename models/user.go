package models

import (
	"time"
)

// User represents a platform user holding a point balance
type User struct {
	DiscordID           int64      `db:"discord_id"`
	Username            string     `db:"username"`
	Points              int64      `db:"points"`
	ReferredBy          *int64     `db:"referred_by"`
	ReferralPaid        bool       `db:"referral_paid"`
	MembershipVerified  bool       `db:"membership_verified"`
	MembershipCheckedAt *time.Time `db:"membership_checked_at"`
	Banned              bool       `db:"banned"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// HasReferrer reports whether a referrer has been bound to the user
func (u *User) HasReferrer() bool {
	return u.ReferredBy != nil
}
