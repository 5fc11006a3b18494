package goals

import (
	"context"
	"fmt"
	"html"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	maxTitleLength    = 255
	maxMetricLength   = 120
	maxUnitLength     = 45
	maxCategoryLength = 80
)

// Service orchestrates validation and persistence for goals, milestones,
// progress and reviews. Every operation is scoped to the requesting owner.
type Service struct {
	repo   Repository
	policy *bluemonday.Policy
	now    func() time.Time
}

// NewService wires a Service with the provided repository.
func NewService(repo Repository) *Service {
	return &Service{
		repo:   repo,
		policy: bluemonday.StrictPolicy(),
		now:    time.Now,
	}
}

// CreateGoal validates and persists a new goal.
func (s *Service) CreateGoal(ctx context.Context, ownerID int64, input CreateGoalInput) (Goal, error) {
	goal := Goal{
		OwnerID:      ownerID,
		Title:        s.clean(input.Title),
		Description:  s.clean(input.Description),
		TargetMetric: s.clean(input.TargetMetric),
		TargetValue:  input.TargetValue,
		CurrentValue: input.CurrentValue,
		Unit:         s.clean(input.Unit),
		Category:     s.clean(input.Category),
		StartDate:    normalizeDate(input.StartDate),
		EndDate:      normalizeDate(input.EndDate),
		CreatedAt:    s.now().UTC(),
	}
	if err := validateGoal(goal); err != nil {
		return Goal{}, err
	}
	return s.repo.CreateGoal(ctx, goal)
}

// GetGoal retrieves one of the owner's goals.
func (s *Service) GetGoal(ctx context.Context, ownerID, id int64) (Goal, error) {
	return s.repo.GetGoal(ctx, ownerID, id)
}

// ListGoals returns the owner's goals ordered by creation date descending.
func (s *Service) ListGoals(ctx context.Context, ownerID int64) ([]Goal, error) {
	return s.repo.ListGoals(ctx, ownerID)
}

// UpdateGoal applies a partial update to one of the owner's goals.
func (s *Service) UpdateGoal(ctx context.Context, ownerID, id int64, input UpdateGoalInput) (Goal, error) {
	goal, err := s.repo.GetGoal(ctx, ownerID, id)
	if err != nil {
		return Goal{}, err
	}

	if input.Title != nil {
		goal.Title = s.clean(*input.Title)
	}
	if input.Description != nil {
		goal.Description = s.clean(*input.Description)
	}
	if input.TargetMetric != nil {
		goal.TargetMetric = s.clean(*input.TargetMetric)
	}
	if input.TargetValue != nil {
		goal.TargetValue = *input.TargetValue
	}
	if input.CurrentValue != nil {
		goal.CurrentValue = *input.CurrentValue
	}
	if input.Unit != nil {
		goal.Unit = s.clean(*input.Unit)
	}
	if input.Category != nil {
		goal.Category = s.clean(*input.Category)
	}
	if input.StartDate != nil {
		goal.StartDate = normalizeDate(input.StartDate)
	}
	if input.EndDate != nil {
		goal.EndDate = normalizeDate(input.EndDate)
	}

	if err := validateGoal(goal); err != nil {
		return Goal{}, err
	}
	return s.repo.UpdateGoal(ctx, goal)
}

// DeleteGoal removes one of the owner's goals with its milestones and progress.
func (s *Service) DeleteGoal(ctx context.Context, ownerID, id int64) error {
	return s.repo.DeleteGoal(ctx, ownerID, id)
}

// AddMilestone attaches a milestone to one of the owner's goals.
func (s *Service) AddMilestone(ctx context.Context, ownerID, goalID int64, input CreateMilestoneInput) (Milestone, error) {
	if _, err := s.repo.GetGoal(ctx, ownerID, goalID); err != nil {
		return Milestone{}, err
	}

	name := s.clean(input.Name)
	if name == "" {
		return Milestone{}, validationErr("milestone name is required")
	}
	if utf8.RuneCountInString(name) > maxTitleLength {
		return Milestone{}, validationErr(fmt.Sprintf("milestone name must be at most %d characters", maxTitleLength))
	}
	if input.TargetValue != nil {
		if err := validateAmount("milestone target value", *input.TargetValue); err != nil {
			return Milestone{}, err
		}
	}

	return s.repo.AddMilestone(ctx, Milestone{
		GoalID:      goalID,
		Name:        name,
		DueDate:     normalizeDate(input.DueDate),
		TargetValue: input.TargetValue,
		CreatedAt:   s.now().UTC(),
	})
}

// ListMilestones returns the milestones of one of the owner's goals by due date.
func (s *Service) ListMilestones(ctx context.Context, ownerID, goalID int64) ([]Milestone, error) {
	if _, err := s.repo.GetGoal(ctx, ownerID, goalID); err != nil {
		return nil, err
	}
	return s.repo.ListMilestones(ctx, goalID)
}

// DeleteMilestone removes a milestone from one of the owner's goals.
func (s *Service) DeleteMilestone(ctx context.Context, ownerID, goalID, id int64) error {
	if _, err := s.repo.GetGoal(ctx, ownerID, goalID); err != nil {
		return err
	}
	return s.repo.DeleteMilestone(ctx, goalID, id)
}

// LogProgress records a sample for one of the owner's goals. The timestamp
// defaults to now; the latest sample becomes the goal's current value.
func (s *Service) LogProgress(ctx context.Context, ownerID, goalID int64, input LogProgressInput) (ProgressLog, error) {
	if _, err := s.repo.GetGoal(ctx, ownerID, goalID); err != nil {
		return ProgressLog{}, err
	}
	if err := validateAmount("progress value", input.Value); err != nil {
		return ProgressLog{}, err
	}

	loggedAt := s.now()
	if input.LoggedAt != nil && !input.LoggedAt.IsZero() {
		loggedAt = *input.LoggedAt
	}

	return s.repo.LogProgress(ctx, ProgressLog{
		GoalID:   goalID,
		LoggedAt: loggedAt.UTC().Truncate(time.Second),
		Value:    input.Value,
		Note:     s.clean(input.Note),
	})
}

// ListProgress returns the samples of one of the owner's goals in chronological order.
func (s *Service) ListProgress(ctx context.Context, ownerID, goalID int64) ([]ProgressLog, error) {
	if _, err := s.repo.GetGoal(ctx, ownerID, goalID); err != nil {
		return nil, err
	}
	return s.repo.ListProgress(ctx, goalID)
}

// ListProgressForOwner returns every sample across the owner's goals.
func (s *Service) ListProgressForOwner(ctx context.Context, ownerID int64) ([]ProgressEntry, error) {
	return s.repo.ListProgressForOwner(ctx, ownerID)
}

// clean strips markup and surrounding whitespace from user text.
func (s *Service) clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(value)))
}

func validateGoal(goal Goal) error {
	if goal.Title == "" {
		return validationErr("title is required")
	}
	if err := validateLength("title", goal.Title, maxTitleLength); err != nil {
		return err
	}
	if err := validateLength("target metric", goal.TargetMetric, maxMetricLength); err != nil {
		return err
	}
	if err := validateLength("unit", goal.Unit, maxUnitLength); err != nil {
		return err
	}
	if err := validateLength("category", goal.Category, maxCategoryLength); err != nil {
		return err
	}
	if err := validateAmount("target value", goal.TargetValue); err != nil {
		return err
	}
	if err := validateAmount("current value", goal.CurrentValue); err != nil {
		return err
	}
	if goal.StartDate != nil && goal.EndDate != nil && goal.EndDate.Before(*goal.StartDate) {
		return validationErr("end date must not be before start date")
	}
	return nil
}

func validateLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return validationErr(fmt.Sprintf("%s must be at most %d characters", field, limit))
	}
	return nil
}

func validateAmount(field string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return validationErr(field + " must be a number")
	}
	if value < 0 {
		return validationErr(field + " must be zero or greater")
	}
	return nil
}

// normalizeDate drops the time of day so dates compare equal across stores.
func normalizeDate(value *time.Time) *time.Time {
	if value == nil || value.IsZero() {
		return nil
	}
	d := time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}
