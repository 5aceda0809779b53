package models

import (
	"time"
)

// RewardDefinition is a purchasable catalog entry
type RewardDefinition struct {
	ID              int64     `db:"id"`
	Name            string    `db:"name"`
	Cost            int64     `db:"cost"`
	DiscountPercent int       `db:"discount_percent"`
	Retired         bool      `db:"retired"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// EffectivePrice returns the cost after discount, rounded half up and never negative
func (r *RewardDefinition) EffectivePrice() int64 {
	return EffectivePrice(r.Cost, r.DiscountPercent)
}

// EffectivePrice applies a percentage discount to a cost.
// Out of range discounts are clamped to 0..100.
func EffectivePrice(cost int64, discountPercent int) int64 {
	if cost <= 0 {
		return 0
	}
	if discountPercent <= 0 {
		return cost
	}
	if discountPercent >= 100 {
		return 0
	}

	// cost * (100 - d) / 100 rounded to nearest, halves up, split so the
	// product stays within int64 for any cost
	remaining := int64(100 - discountPercent)
	return cost/100*remaining + (cost%100*remaining+50)/100
}

// CatalogEntry is a reward as shown to users, with its current price and stock
type CatalogEntry struct {
	Reward         *RewardDefinition
	EffectivePrice int64
	Available      int64
}
