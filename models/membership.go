package models

// MembershipStatus is the answer of an external membership probe
type MembershipStatus int

const (
	MembershipUnknown MembershipStatus = iota
	MembershipMember
	MembershipNotMember
)

func (s MembershipStatus) String() string {
	switch s {
	case MembershipMember:
		return "member"
	case MembershipNotMember:
		return "not_member"
	default:
		return "unknown"
	}
}

// MembershipDecision is the outcome of the membership gate for one user
type MembershipDecision struct {
	Allowed      bool
	Missing      []string // channels not joined, in configured order
	Unverifiable []string // subset of Missing whose probe failed or timed out
}

// ReferralInfo summarizes a user's referral standing
type ReferralInfo struct {
	RewardPerReferral int64
	PaidReferrals     int64
	PendingReferrals  int64
}
