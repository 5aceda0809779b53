package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectivePrice(t *testing.T) {
	tests := []struct {
		name     string
		cost     int64
		discount int
		want     int64
	}{
		{"no discount", 10, 0, 10},
		{"half off", 10, 50, 5},
		{"rounds half up", 5, 50, 3},
		{"rounds down below half", 7, 10, 6},
		{"full discount", 10, 100, 0},
		{"negative discount clamps", 10, -20, 10},
		{"over hundred clamps", 10, 150, 0},
		{"free reward", 0, 25, 0},
		{"large cost", 1_000_000, 33, 670_000},
		{"cost near int64 limit", 200_000_000_000_000_000, 10, 180_000_000_000_000_000},
		{"max cost keeps rounding", math.MaxInt64, 1, 9_131_138_316_486_228_049},
		{"max cost without discount", math.MaxInt64, 0, math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectivePrice(tt.cost, tt.discount))
		})
	}
}

func TestRewardDefinition_EffectivePrice(t *testing.T) {
	reward := &RewardDefinition{Cost: 12, DiscountPercent: 25}
	assert.Equal(t, int64(9), reward.EffectivePrice())
}

func TestStockCount_Total(t *testing.T) {
	assert.Equal(t, int64(5), StockCount{Available: 2, Consumed: 3}.Total())
}
