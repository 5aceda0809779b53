package models

import (
	"time"
)

// InventoryItem is one single-use unit of a reward
type InventoryItem struct {
	ID         int64      `db:"id"`
	RewardID   int64      `db:"reward_id"`
	Payload    string     `db:"payload"`
	Consumed   bool       `db:"consumed"`
	ConsumedBy *int64     `db:"consumed_by"`
	ConsumedAt *time.Time `db:"consumed_at"`
	CreatedAt  time.Time  `db:"created_at"`
}

// StockCount summarizes inventory for one reward
type StockCount struct {
	RewardID   int64
	RewardName string
	Available  int64
	Consumed   int64
}

// Total returns every unit ever inserted for the reward
func (s StockCount) Total() int64 {
	return s.Available + s.Consumed
}
