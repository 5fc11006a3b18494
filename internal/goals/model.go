package goals

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a goal, milestone or review cannot be located
// for the requesting owner.
var ErrNotFound = errors.New("goal not found")

// ErrValidation is returned when input validation fails.
var ErrValidation = errors.New("validation error")

// ValidationError wraps a validation message so callers can distinguish
// client errors from internal failures.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validationErr(message string) error {
	return &ValidationError{Message: message}
}

// Goal is a yearly objective with a measurable target.
type Goal struct {
	ID           int64      `db:"id" json:"id"`
	OwnerID      int64      `db:"owner_id" json:"ownerId"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	TargetMetric string     `db:"target_metric" json:"targetMetric"`
	TargetValue  float64    `db:"target_value" json:"targetValue"`
	CurrentValue float64    `db:"current_value" json:"currentValue"`
	Unit         string     `db:"unit" json:"unit"`
	Category     string     `db:"category" json:"category"`
	StartDate    *time.Time `db:"start_date" json:"startDate,omitempty"`
	EndDate      *time.Time `db:"end_date" json:"endDate,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

// Completion returns current over target as a percentage, 0 when no target is set.
func (g Goal) Completion() int {
	if g.TargetValue <= 0 {
		return 0
	}
	return int(g.CurrentValue / g.TargetValue * 100)
}

// DisplayUnit is the unit shown next to values, falling back to the metric name.
func (g Goal) DisplayUnit() string {
	if g.Unit != "" {
		return g.Unit
	}
	return g.TargetMetric
}

// Milestone is an intermediate checkpoint of a goal.
type Milestone struct {
	ID          int64      `db:"id" json:"id"`
	GoalID      int64      `db:"goal_id" json:"goalId"`
	Name        string     `db:"name" json:"name"`
	DueDate     *time.Time `db:"due_date" json:"dueDate,omitempty"`
	TargetValue *float64   `db:"target_value" json:"targetValue,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

// ProgressLog is one recorded sample of a goal's metric.
type ProgressLog struct {
	ID       int64     `db:"id" json:"id"`
	GoalID   int64     `db:"goal_id" json:"goalId"`
	LoggedAt time.Time `db:"logged_at" json:"loggedAt"`
	Value    float64   `db:"value" json:"value"`
	Note     string    `db:"note" json:"note"`
}

// ProgressEntry is a progress sample joined with its goal title, the shape
// used by exports and the dashboard.
type ProgressEntry struct {
	GoalID    int64     `db:"goal_id" json:"goalId"`
	GoalTitle string    `db:"goal_title" json:"goalTitle"`
	LoggedAt  time.Time `db:"logged_at" json:"loggedAt"`
	Value     float64   `db:"value" json:"value"`
	Note      string    `db:"note" json:"note"`
}

// Review is a monthly reflection. Month is always the first day of the month in UTC.
type Review struct {
	ID          int64     `db:"id" json:"id"`
	OwnerID     int64     `db:"owner_id" json:"ownerId"`
	Month       time.Time `db:"month" json:"month"`
	Reflections string    `db:"reflections" json:"reflections"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// CreateGoalInput captures the data needed to create a new Goal.
type CreateGoalInput struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	TargetMetric string     `json:"targetMetric"`
	TargetValue  float64    `json:"targetValue"`
	CurrentValue float64    `json:"currentValue"`
	Unit         string     `json:"unit"`
	Category     string     `json:"category"`
	StartDate    *time.Time `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`
}

// UpdateGoalInput describes a partial update; nil fields are left untouched.
type UpdateGoalInput struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	TargetMetric *string    `json:"targetMetric"`
	TargetValue  *float64   `json:"targetValue"`
	CurrentValue *float64   `json:"currentValue"`
	Unit         *string    `json:"unit"`
	Category     *string    `json:"category"`
	StartDate    *time.Time `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`
}

// CreateMilestoneInput captures a new milestone.
type CreateMilestoneInput struct {
	Name        string     `json:"name"`
	DueDate     *time.Time `json:"dueDate"`
	TargetValue *float64   `json:"targetValue"`
}

// LogProgressInput captures a new progress sample. LoggedAt defaults to now.
type LogProgressInput struct {
	Value    float64    `json:"value"`
	LoggedAt *time.Time `json:"loggedAt"`
	Note     string     `json:"note"`
}
