package models

import "time"

// Task priority tags assigned by the generator.
const (
	PriorityB2B            = "B2B"
	PriorityDepartureClean = "Departure Clean"
)

// Task status values.
const (
	TaskStatusUnassigned = "Unassigned"
	TaskStatusAssigned   = "Assigned"
	TaskStatusInProgress = "In Progress"
	TaskStatusCompleted  = "Completed"
)

// TaskTypeClean names the task type the generator creates.
const TaskTypeClean = "Clean"

// TaskType is an owner-scoped kind of cleaning work.
type TaskType struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Cleaner is a person tasks can be assigned to.
type Cleaner struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Name      string    `db:"name" json:"name"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CleaningTask is one unit of cleaning work.
type CleaningTask struct {
	ID            string     `db:"id" json:"id"`
	OwnerID       string     `db:"owner_id" json:"owner_id"`
	PropertyID    string     `db:"property_id" json:"property_id"`
	ReservationID *string    `db:"reservation_id" json:"reservation_id,omitempty"`
	TaskTypeID    string     `db:"task_type_id" json:"task_type_id"`
	PriorityTag   string     `db:"priority_tag" json:"priority_tag"`
	ScheduledDate string     `db:"scheduled_date" json:"scheduled_date"`
	Status        string     `db:"status" json:"status"`
	CleanerID     *string    `db:"cleaner_id" json:"cleaner_id,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	CompletedAt   *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// TaskKey is the idempotence key of a generated task.
type TaskKey struct {
	ReservationID string
	TaskTypeID    string
	ScheduledDate string
}

// Key returns the task's idempotence key. Tasks without a reservation have
// an empty ReservationID.
func (t *CleaningTask) Key() TaskKey {
	k := TaskKey{TaskTypeID: t.TaskTypeID, ScheduledDate: t.ScheduledDate}
	if t.ReservationID != nil {
		k.ReservationID = *t.ReservationID
	}
	return k
}

// IsCompleted reports whether the task is finished.
func (t *CleaningTask) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusUnassigned, TaskStatusAssigned, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}
