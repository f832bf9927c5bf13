package model

import "time"

// FamilyMember is a person's global identity, shared across households.
// Per-household state (role, points, streaks) lives on MemberProfile.
type FamilyMember struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	HasPIN    bool      `json:"has_pin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
