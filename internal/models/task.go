package models

import "time"

// Status is a task state. Any value may follow any other.
type Status string

const (
	StatusTodo  Status = "todo"
	StatusDone  Status = "done"
	StatusWait  Status = "wait"
	StatusHold  Status = "hold"
	StatusIdea  Status = "idea"
	StatusKill  Status = "kill"
	StatusProj  Status = "proj"
	StatusEvent Status = "event"
)

// Statuses lists every valid Status.
var Statuses = []Status{
	StatusTodo, StatusDone, StatusWait, StatusHold,
	StatusIdea, StatusKill, StatusProj, StatusEvent,
}

// Task is the overlay attached 1:1 to a note.
type Task struct {
	ID               int64      `json:"id"`
	NoteID           int64      `json:"note_id"`
	Status           Status     `json:"status"`
	EffortEstimate   *float64   `json:"effort_estimate,omitempty"`
	ActualEffort     *float64   `json:"actual_effort,omitempty"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	Priority         *int       `json:"priority,omitempty"`
	AllDay           bool       `json:"all_day"`
	GoalRelationship *int       `json:"goal_relationship,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ModifiedAt       time.Time  `json:"modified_at"`
}

// TaskInput is the payload for promoting a note to a task.
type TaskInput struct {
	Status           Status     `json:"status"`
	EffortEstimate   *float64   `json:"effort_estimate,omitempty"`
	ActualEffort     *float64   `json:"actual_effort,omitempty"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	Priority         *int       `json:"priority,omitempty"`
	AllDay           bool       `json:"all_day"`
	GoalRelationship *int       `json:"goal_relationship,omitempty"`
}

// TaskPatch updates task fields. Nil fields are left unchanged; the Clear*
// flags reset an optional field to null.
type TaskPatch struct {
	Status           *Status    `json:"status,omitempty"`
	EffortEstimate   *float64   `json:"effort_estimate,omitempty"`
	ActualEffort     *float64   `json:"actual_effort,omitempty"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	Priority         *int       `json:"priority,omitempty"`
	AllDay           *bool      `json:"all_day,omitempty"`
	GoalRelationship *int       `json:"goal_relationship,omitempty"`

	ClearDeadline bool `json:"clear_deadline,omitempty"`
	ClearPriority bool `json:"clear_priority,omitempty"`
}

// Schedule is an advisory time window for a task.
type Schedule struct {
	ID     int64     `json:"id"`
	TaskID int64     `json:"task_id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// Clock is a work interval. ClockOut is nil while the clock is open.
type Clock struct {
	ID       int64      `json:"id"`
	TaskID   int64      `json:"task_id"`
	ClockIn  time.Time  `json:"clock_in"`
	ClockOut *time.Time `json:"clock_out,omitempty"`
}

// Open reports whether the clock has not been closed yet.
func (c Clock) Open() bool {
	return c.ClockOut == nil
}

// Duration returns the closed interval length, or zero while open.
func (c Clock) Duration() time.Duration {
	if c.ClockOut == nil {
		return 0
	}
	return c.ClockOut.Sub(c.ClockIn)
}
