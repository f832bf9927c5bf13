package model

import "time"

type TaskStatus string

const (
	TaskPending         TaskStatus = "pending"
	TaskPendingApproval TaskStatus = "pending_approval"
	TaskApproved        TaskStatus = "approved"
)

type Task struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	Title       string     `json:"title"`
	PointsValue int        `json:"points_value"`
	Status      TaskStatus `json:"status"`
	AssignedTo  []int64    `json:"assigned_to"`
	CompletedBy *int64     `json:"completed_by"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AssignedToMember reports whether the given profile is an assignee.
func (t *Task) AssignedToMember(profileID int64) bool {
	for _, id := range t.AssignedTo {
		if id == profileID {
			return true
		}
	}
	return false
}

// Routine is a repeatable activity worth a fixed number of points.
// Completing one awards points immediately, with no approval step
// and no streak multiplier.
type Routine struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Title       string    `json:"title"`
	PointsValue int       `json:"points_value"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RoutineCompletion struct {
	ID          int64     `json:"id"`
	RoutineID   int64     `json:"routine_id"`
	CompletedBy int64     `json:"completed_by"`
	CompletedAt time.Time `json:"completed_at"`
}
