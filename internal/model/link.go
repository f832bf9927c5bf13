package model

import "time"

// Category names one of the data categories a HouseholdLink can share.
// The set is closed: anything outside these nine is rejected at the edge.
type Category string

const (
	CategoryPoints   Category = "points"
	CategoryXP       Category = "xp"
	CategoryStreaks  Category = "streaks"
	CategoryTasks    Category = "tasks"
	CategoryQuests   Category = "quests"
	CategoryRoutines Category = "routines"
	CategoryStore    Category = "store"
	CategoryWishlist Category = "wishlist"
	CategoryCalendar Category = "calendar"
)

// Categories lists every sharing category in a stable order.
var Categories = []Category{
	CategoryPoints, CategoryXP, CategoryStreaks, CategoryTasks,
	CategoryQuests, CategoryRoutines, CategoryStore, CategoryWishlist,
	CategoryCalendar,
}

// ValidCategory reports whether s names one of the nine categories.
func ValidCategory(s string) bool {
	for _, c := range Categories {
		if Category(s) == c {
			return true
		}
	}
	return false
}

type SettingValue string

const (
	SettingShared   SettingValue = "shared"
	SettingSeparate SettingValue = "separate"
)

func ValidSettingValue(s string) bool {
	return SettingValue(s) == SettingShared || SettingValue(s) == SettingSeparate
}

// SharingSettings holds one value per category. Keeping a field per
// category (rather than a string-keyed map) makes an unknown category
// unrepresentable once input validation has run.
type SharingSettings struct {
	Points   SettingValue `json:"points"`
	XP       SettingValue `json:"xp"`
	Streaks  SettingValue `json:"streaks"`
	Tasks    SettingValue `json:"tasks"`
	Quests   SettingValue `json:"quests"`
	Routines SettingValue `json:"routines"`
	Store    SettingValue `json:"store"`
	Wishlist SettingValue `json:"wishlist"`
	Calendar SettingValue `json:"calendar"`
}

// DefaultSharingSettings returns settings with every category separate,
// the state of a freshly created link.
func DefaultSharingSettings() SharingSettings {
	return SharingSettings{
		Points:   SettingSeparate,
		XP:       SettingSeparate,
		Streaks:  SettingSeparate,
		Tasks:    SettingSeparate,
		Quests:   SettingSeparate,
		Routines: SettingSeparate,
		Store:    SettingSeparate,
		Wishlist: SettingSeparate,
		Calendar: SettingSeparate,
	}
}

// Get returns the value for a category. Callers must have validated the
// category; an unknown one reports separate.
func (s SharingSettings) Get(c Category) SettingValue {
	switch c {
	case CategoryPoints:
		return s.Points
	case CategoryXP:
		return s.XP
	case CategoryStreaks:
		return s.Streaks
	case CategoryTasks:
		return s.Tasks
	case CategoryQuests:
		return s.Quests
	case CategoryRoutines:
		return s.Routines
	case CategoryStore:
		return s.Store
	case CategoryWishlist:
		return s.Wishlist
	case CategoryCalendar:
		return s.Calendar
	}
	return SettingSeparate
}

// Set writes the value for a category.
func (s *SharingSettings) Set(c Category, v SettingValue) {
	switch c {
	case CategoryPoints:
		s.Points = v
	case CategoryXP:
		s.XP = v
	case CategoryStreaks:
		s.Streaks = v
	case CategoryTasks:
		s.Tasks = v
	case CategoryQuests:
		s.Quests = v
	case CategoryRoutines:
		s.Routines = v
	case CategoryStore:
		s.Store = v
	case CategoryWishlist:
		s.Wishlist = v
	case CategoryCalendar:
		s.Calendar = v
	}
}

type LinkStatus string

const (
	LinkActive   LinkStatus = "active"
	LinkUnlinked LinkStatus = "unlinked"
)

// HouseholdLink is the negotiated relationship between two households
// sharing one child's progress. Links are never hard-deleted; unlinking
// sets Status to unlinked and keeps the history.
type HouseholdLink struct {
	ID                  int64           `json:"id"`
	ChildFamilyMemberID int64           `json:"child_family_member_id"`
	Household1ID        int64           `json:"household1_id"`
	Household2ID        int64           `json:"household2_id"`
	Settings            SharingSettings `json:"sharing_settings"`
	Status              LinkStatus      `json:"status"`
	Version             int64           `json:"version"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Counterpart returns the other household of the link, and false if the
// given household is not part of the link at all.
func (l *HouseholdLink) Counterpart(householdID int64) (int64, bool) {
	switch householdID {
	case l.Household1ID:
		return l.Household2ID, true
	case l.Household2ID:
		return l.Household1ID, true
	}
	return 0, false
}

type ChangeStatus string

const (
	ChangePending  ChangeStatus = "pending"
	ChangeApproved ChangeStatus = "approved"
	ChangeRejected ChangeStatus = "rejected"
	ChangeExpired  ChangeStatus = "expired"
)

// PendingChange is a proposed sharing-setting change awaiting the
// counterpart household's decision. approved, rejected and expired are
// terminal; a change never leaves them.
type PendingChange struct {
	ID                  int64        `json:"id"`
	LinkID              int64        `json:"link_id"`
	Setting             Category     `json:"setting"`
	CurrentValue        SettingValue `json:"current_value"`
	ProposedValue       SettingValue `json:"proposed_value"`
	ProposedBy          int64        `json:"proposed_by"`
	ProposedByHousehold int64        `json:"proposed_by_household"`
	ProposedAt          time.Time    `json:"proposed_at"`
	ExpiresAt           time.Time    `json:"expires_at"`
	Status              ChangeStatus `json:"status"`
	PreviousRejections  int          `json:"previous_rejections"`
	LastRejectedAt      *time.Time   `json:"last_rejected_at"`
}

// ProposalEntry is an append-only audit record of every proposal ever
// made on a link, regardless of outcome.
type ProposalEntry struct {
	ID                  int64        `json:"id"`
	LinkID              int64        `json:"link_id"`
	Setting             Category     `json:"setting"`
	ProposedValue       SettingValue `json:"proposed_value"`
	ProposedBy          int64        `json:"proposed_by"`
	ProposedByHousehold int64        `json:"proposed_by_household"`
	ProposedAt          time.Time    `json:"proposed_at"`
}

// LinkCode bootstraps a HouseholdLink: one household issues it for a
// child, the other household redeems it within seven days. Codes are
// single-use random tokens.
type LinkCode struct {
	ID                  int64      `json:"id"`
	HouseholdID         int64      `json:"household_id"`
	ChildFamilyMemberID int64      `json:"child_family_member_id"`
	Code                string     `json:"code"`
	ExpiresAt           time.Time  `json:"expires_at"`
	UsedAt              *time.Time `json:"used_at"`
	CreatedAt           time.Time  `json:"created_at"`
}
