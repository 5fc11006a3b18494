package goals

import "context"

// Repository abstracts persistence for goals and their children. Goal reads
// and writes are scoped by owner; a goal owned by someone else is ErrNotFound.
type Repository interface {
	CreateGoal(ctx context.Context, goal Goal) (Goal, error)
	GetGoal(ctx context.Context, ownerID, id int64) (Goal, error)
	ListGoals(ctx context.Context, ownerID int64) ([]Goal, error)
	UpdateGoal(ctx context.Context, goal Goal) (Goal, error)
	DeleteGoal(ctx context.Context, ownerID, id int64) error

	AddMilestone(ctx context.Context, milestone Milestone) (Milestone, error)
	ListMilestones(ctx context.Context, goalID int64) ([]Milestone, error)
	DeleteMilestone(ctx context.Context, goalID, id int64) error

	// LogProgress stores the sample and, when it is the goal's latest, copies
	// its value into the goal's current value in the same transaction.
	LogProgress(ctx context.Context, log ProgressLog) (ProgressLog, error)
	ListProgress(ctx context.Context, goalID int64) ([]ProgressLog, error)
	ListProgressForOwner(ctx context.Context, ownerID int64) ([]ProgressEntry, error)

	// SaveReview inserts or replaces the review of (owner, month).
	SaveReview(ctx context.Context, review Review) (Review, error)
	ListReviews(ctx context.Context, ownerID int64, limit int) ([]Review, error)
}
