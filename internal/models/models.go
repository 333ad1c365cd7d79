package models

import "time"

// Role is the sole source of privilege for a user
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// TaskState is the lifecycle stage of a task
type TaskState string

const (
	StatePending    TaskState = "pending"
	StateInProgress TaskState = "in_progress"
	StateCompleted  TaskState = "completed"
)

// TaskStates lists the states in lifecycle order
var TaskStates = []TaskState{StatePending, StateInProgress, StateCompleted}

// Valid reports whether s is a known state
func (s TaskState) Valid() bool {
	switch s {
	case StatePending, StateInProgress, StateCompleted:
		return true
	}
	return false
}

// Label returns the display name of the state
func (s TaskState) Label() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateInProgress:
		return "In Progress"
	case StateCompleted:
		return "Completed"
	}
	return string(s)
}

// Next returns the state that follows s. The lifecycle cycles, so completed
// is followed by pending.
func (s TaskState) Next() TaskState {
	for i, st := range TaskStates {
		if st == s {
			return TaskStates[(i+1)%len(TaskStates)]
		}
	}
	return StatePending
}

// Priority of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists priorities from lowest to highest
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Label returns the display name of the priority
func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	}
	return string(p)
}

// NotificationType classifies why a notification was sent
type NotificationType string

const (
	NotifyAssignment  NotificationType = "assignment"
	NotifyDueSoon     NotificationType = "due_soon"
	NotifyStateChange NotificationType = "state_change"
	NotifyComment     NotificationType = "comment"
)

// User is an account that can act on projects and tasks
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// IsAdmin is derived from the role on every call; nothing is stored
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Project groups tasks under an owner
type Project struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	StartDate   Date      `db:"start_date" json:"start_date"`
	EndDate     *Date     `db:"end_date" json:"end_date,omitempty"`
	OwnerID     int64     `db:"owner_id" json:"owner_id"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Task represents a single unit of work inside a project
type Task struct {
	ID          int64     `db:"id" json:"id"`
	ProjectID   int64     `db:"project_id" json:"project_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	AssigneeID  *int64    `db:"assignee_id" json:"assignee_id,omitempty"`
	CreatorID   int64     `db:"creator_id" json:"creator_id"`
	DueDate     Date      `db:"due_date" json:"due_date"`
	State       TaskState `db:"state" json:"state"`
	Priority    Priority  `db:"priority" json:"priority"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// IsAssignedTo reports whether userID is the current assignee
func (t *Task) IsAssignedTo(userID int64) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// Comment represents a comment on a task
type Comment struct {
	ID        int64     `db:"id" json:"id"`
	TaskID    int64     `db:"task_id" json:"task_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Username  string    `db:"username" json:"username"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HistoryEntry is one append-only line of a task's audit trail
type HistoryEntry struct {
	ID        int64     `db:"id" json:"id"`
	TaskID    int64     `db:"task_id" json:"task_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Username  string    `db:"username" json:"username"`
	Action    string    `db:"action" json:"action"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Notification is a message to one user about one task
type Notification struct {
	ID        int64            `db:"id" json:"id"`
	UserID    int64            `db:"user_id" json:"user_id"`
	TaskID    int64            `db:"task_id" json:"task_id"`
	Message   string           `db:"message" json:"message"`
	Type      NotificationType `db:"type" json:"type"`
	Read      bool             `db:"is_read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
