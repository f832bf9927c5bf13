package model

import "time"

type Session struct {
	ID              int64     `json:"id"`
	Token           string    `json:"-"`
	MemberProfileID int64     `json:"member_profile_id"`
	HouseholdID     int64     `json:"household_id"`
	ExpiresAt       time.Time `json:"expires_at"`
	CreatedAt       time.Time `json:"created_at"`
}
