package model

import "time"

type Household struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

// ValidRole reports whether s is one of the known member roles.
func ValidRole(s string) bool {
	return Role(s) == RoleParent || Role(s) == RoleChild
}

// MemberProfile is a person's per-household record. The same family member
// can hold a profile in more than one household; points and streaks are
// tracked independently per profile.
type MemberProfile struct {
	ID                 int64      `json:"id"`
	HouseholdID        int64      `json:"household_id"`
	FamilyMemberID     int64      `json:"family_member_id"`
	DisplayName        string     `json:"display_name"`
	Role               Role       `json:"role"`
	PointsTotal        int        `json:"points_total"`
	CurrentStreak      int        `json:"current_streak"`
	LongestStreak      int        `json:"longest_streak"`
	LastCompletionDate *time.Time `json:"last_completion_date"`
	StreakMultiplier   float64    `json:"streak_multiplier"`
	Version            int64      `json:"version"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
