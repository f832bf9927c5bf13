package model

import "time"

type SyncIntentStatus string

const (
	SyncPending   SyncIntentStatus = "pending"
	SyncDelivered SyncIntentStatus = "delivered"
	SyncFailed    SyncIntentStatus = "failed"
)

// SyncIntent is an outbox row recording a point delta that should be
// mirrored to the counterpart household of a link. It is written in the
// same transaction as the originating award and drained by a worker;
// the award never waits on, or fails because of, delivery.
type SyncIntent struct {
	ID                  int64            `json:"id"`
	IntentKey           string           `json:"intent_key"`
	LinkID              int64            `json:"link_id"`
	TargetHouseholdID   int64            `json:"target_household_id"`
	ChildFamilyMemberID int64            `json:"child_family_member_id"`
	PointsDelta         int              `json:"points_delta"`
	Status              SyncIntentStatus `json:"status"`
	Attempts            int              `json:"attempts"`
	LastError           string           `json:"last_error"`
	CreatedAt           time.Time        `json:"created_at"`
	DeliveredAt         *time.Time       `json:"delivered_at"`
}
