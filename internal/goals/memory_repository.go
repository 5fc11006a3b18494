package goals

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// InMemoryRepository stores goals in process memory, ideal for local development or tests.
type InMemoryRepository struct {
	mu         sync.RWMutex
	nextID     int64
	goals      map[int64]Goal
	milestones map[int64]Milestone
	progress   map[int64]ProgressLog
	reviews    map[int64]Review
}

// NewInMemoryRepository constructs an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		goals:      make(map[int64]Goal),
		milestones: make(map[int64]Milestone),
		progress:   make(map[int64]ProgressLog),
		reviews:    make(map[int64]Review),
	}
}

func (r *InMemoryRepository) id() int64 {
	r.nextID++
	return r.nextID
}

// CreateGoal stores a new goal.
func (r *InMemoryRepository) CreateGoal(_ context.Context, goal Goal) (Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	goal.ID = r.id()
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Now().UTC()
	}
	r.goals[goal.ID] = goal
	return goal, nil
}

// GetGoal returns the owner's goal by ID.
func (r *InMemoryRepository) GetGoal(_ context.Context, ownerID, id int64) (Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	goal, ok := r.goals[id]
	if !ok || goal.OwnerID != ownerID {
		return Goal{}, ErrNotFound
	}
	return goal, nil
}

// ListGoals returns the owner's goals, newest first.
func (r *InMemoryRepository) ListGoals(_ context.Context, ownerID int64) ([]Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Goal, 0)
	for _, goal := range r.goals {
		if goal.OwnerID == ownerID {
			out = append(out, goal)
		}
	}
	slices.SortFunc(out, compareGoalsByCreatedDesc)
	return out, nil
}

// UpdateGoal replaces an existing goal.
func (r *InMemoryRepository) UpdateGoal(_ context.Context, goal Goal) (Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.goals[goal.ID]
	if !ok || existing.OwnerID != goal.OwnerID {
		return Goal{}, ErrNotFound
	}
	goal.CreatedAt = existing.CreatedAt
	r.goals[goal.ID] = goal
	return goal, nil
}

// DeleteGoal removes a goal together with its milestones and progress.
func (r *InMemoryRepository) DeleteGoal(_ context.Context, ownerID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	goal, ok := r.goals[id]
	if !ok || goal.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.goals, id)
	for mid, m := range r.milestones {
		if m.GoalID == id {
			delete(r.milestones, mid)
		}
	}
	for pid, p := range r.progress {
		if p.GoalID == id {
			delete(r.progress, pid)
		}
	}
	return nil
}

// AddMilestone stores a milestone for an existing goal.
func (r *InMemoryRepository) AddMilestone(_ context.Context, milestone Milestone) (Milestone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.goals[milestone.GoalID]; !ok {
		return Milestone{}, ErrNotFound
	}
	milestone.ID = r.id()
	milestone.CreatedAt = time.Now().UTC()
	r.milestones[milestone.ID] = milestone
	return milestone, nil
}

// ListMilestones returns a goal's milestones by due date, undated last.
func (r *InMemoryRepository) ListMilestones(_ context.Context, goalID int64) ([]Milestone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Milestone, 0)
	for _, m := range r.milestones {
		if m.GoalID == goalID {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, compareMilestonesByDue)
	return out, nil
}

// DeleteMilestone removes a milestone of the given goal.
func (r *InMemoryRepository) DeleteMilestone(_ context.Context, goalID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.milestones[id]
	if !ok || m.GoalID != goalID {
		return ErrNotFound
	}
	delete(r.milestones, id)
	return nil
}

// LogProgress stores a sample and refreshes the goal's current value when it is the latest.
func (r *InMemoryRepository) LogProgress(_ context.Context, log ProgressLog) (ProgressLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	goal, ok := r.goals[log.GoalID]
	if !ok {
		return ProgressLog{}, ErrNotFound
	}

	log.ID = r.id()
	r.progress[log.ID] = log

	latest := true
	for _, p := range r.progress {
		if p.GoalID == log.GoalID && p.ID != log.ID && p.LoggedAt.After(log.LoggedAt) {
			latest = false
			break
		}
	}
	if latest {
		goal.CurrentValue = log.Value
		r.goals[goal.ID] = goal
	}
	return log, nil
}

// ListProgress returns a goal's samples in chronological order.
func (r *InMemoryRepository) ListProgress(_ context.Context, goalID int64) ([]ProgressLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProgressLog, 0)
	for _, p := range r.progress {
		if p.GoalID == goalID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, compareProgressByLoggedAt)
	return out, nil
}

// ListProgressForOwner returns every sample of the owner's goals with the goal title.
func (r *InMemoryRepository) ListProgressForOwner(_ context.Context, ownerID int64) ([]ProgressEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	logs := make([]ProgressLog, 0)
	for _, p := range r.progress {
		if goal, ok := r.goals[p.GoalID]; ok && goal.OwnerID == ownerID {
			logs = append(logs, p)
		}
	}
	slices.SortFunc(logs, compareProgressByLoggedAt)

	out := make([]ProgressEntry, 0, len(logs))
	for _, p := range logs {
		out = append(out, ProgressEntry{
			GoalID:    p.GoalID,
			GoalTitle: r.goals[p.GoalID].Title,
			LoggedAt:  p.LoggedAt,
			Value:     p.Value,
			Note:      p.Note,
		})
	}
	return out, nil
}

// SaveReview inserts or replaces the review for the owner's month.
func (r *InMemoryRepository) SaveReview(_ context.Context, review Review) (Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for id, existing := range r.reviews {
		if existing.OwnerID == review.OwnerID && existing.Month.Equal(review.Month) {
			existing.Reflections = review.Reflections
			existing.UpdatedAt = now
			r.reviews[id] = existing
			return existing, nil
		}
	}

	review.ID = r.id()
	review.CreatedAt = now
	review.UpdatedAt = now
	r.reviews[review.ID] = review
	return review, nil
}

// ListReviews returns the owner's most recent reviews, newest month first.
func (r *InMemoryRepository) ListReviews(_ context.Context, ownerID int64, limit int) ([]Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Review, 0)
	for _, review := range r.reviews {
		if review.OwnerID == ownerID {
			out = append(out, review)
		}
	}
	slices.SortFunc(out, func(a, b Review) int {
		return b.Month.Compare(a.Month)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func compareGoalsByCreatedDesc(a, b Goal) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

func compareMilestonesByDue(a, b Milestone) int {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return cmp.Compare(a.ID, b.ID)
	case a.DueDate == nil:
		return 1
	case b.DueDate == nil:
		return -1
	}
	if c := a.DueDate.Compare(*b.DueDate); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func compareProgressByLoggedAt(a, b ProgressLog) int {
	if c := a.LoggedAt.Compare(b.LoggedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
