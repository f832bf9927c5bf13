package model

import "time"

type Reward struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Title       string    `json:"title"`
	PointCost   int       `json:"point_cost"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type RewardPurchase struct {
	ID          int64     `json:"id"`
	RewardID    int64     `json:"reward_id"`
	PurchasedBy int64     `json:"purchased_by"`
	PointsSpent int       `json:"points_spent"`
	PurchasedAt time.Time `json:"purchased_at"`
}
