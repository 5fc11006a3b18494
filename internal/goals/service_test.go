package goals

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func newTestService(now time.Time) *Service {
	svc := NewService(NewInMemoryRepository())
	svc.now = func() time.Time { return now }
	return svc
}

func TestServiceCreateGoalValidatesInput(t *testing.T) {
	svc := newTestService(time.Now())

	_, err := svc.CreateGoal(context.Background(), 1, CreateGoalInput{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error when title missing, got %v", err)
	}

	var verr *ValidationError
	_, err = svc.CreateGoal(context.Background(), 1, CreateGoalInput{Title: "Correr", TargetValue: -1})
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}

	_, err = svc.CreateGoal(context.Background(), 1, CreateGoalInput{Title: "Correr", TargetValue: math.NaN()})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected NaN to be rejected, got %v", err)
	}
}

func TestServiceCreateGoalRejectsInvertedDates(t *testing.T) {
	svc := newTestService(time.Now())
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.CreateGoal(context.Background(), 1, CreateGoalInput{Title: "Ler", StartDate: &start, EndDate: &end})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceCreateGoalSanitizesText(t *testing.T) {
	svc := newTestService(time.Now())

	goal, err := svc.CreateGoal(context.Background(), 1, CreateGoalInput{
		Title:       "  <b>Correr</b> 5km & mais ",
		Description: `<a href="javascript:alert(1)">clique</a>`,
		TargetValue: 100,
	})
	if err != nil {
		t.Fatalf("CreateGoal returned error: %v", err)
	}
	if goal.Title != "Correr 5km & mais" {
		t.Fatalf("unexpected title %q", goal.Title)
	}
	if goal.Description != "clique" {
		t.Fatalf("unexpected description %q", goal.Description)
	}

	_, err = svc.CreateGoal(context.Background(), 1, CreateGoalInput{Title: "<script>alert(1)</script>"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected markup-only title to be rejected, got %v", err)
	}
}

func TestServiceListGoalsIsScopedAndNewestFirst(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestService(now)
	ctx := context.Background()

	first, _ := svc.CreateGoal(ctx, 1, CreateGoalInput{Title: "Primeiro"})
	svc.now = func() time.Time { return now.Add(time.Hour) }
	second, _ := svc.CreateGoal(ctx, 1, CreateGoalInput{Title: "Segundo"})
	if _, err := svc.CreateGoal(ctx, 2, CreateGoalInput{Title: "Outro dono"}); err != nil {
		t.Fatalf("CreateGoal returned error: %v", err)
	}

	goals, err := svc.ListGoals(ctx, 1)
	if err != nil {
		t.Fatalf("ListGoals returned error: %v", err)
	}
	if len(goals) != 2 {
		t.Fatalf("expected 2 goals, got %d", len(goals))
	}
	if goals[0].ID != second.ID || goals[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", goals)
	}
}

func TestServiceGetGoalForeignOwnerIsNotFound(t *testing.T) {
	svc := newTestService(time.Now())
	ctx := context.Background()

	goal, err := svc.CreateGoal(ctx, 1, CreateGoalInput{Title: "Privado"})
	if err != nil {
		t.Fatalf("CreateGoal returned error: %v", err)
	}

	if _, err := svc.GetGoal(ctx, 2, goal.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteGoal(ctx, 2, goal.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on foreign delete, got %v", err)
	}
	if _, err := svc.LogProgress(ctx, 2, goal.ID, LogProgressInput{Value: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on foreign progress, got %v", err)
	}
}

func TestServiceUpdateGoalPartial(t *testing.T) {
	svc := newTestService(time.Now())
	ctx := context.Background()

	created, err := svc.CreateGoal(ctx, 1, CreateGoalInput{Title: "Inicial", Unit: "km", TargetValue: 10})
	if err != nil {
		t.Fatalf("CreateGoal returned error: %v", err)
	}

	title := "Atualizado"
	target := 42.0
	updated, err := svc.UpdateGoal(ctx, 1, created.ID, UpdateGoalInput{Title: &title, TargetValue: &target})
	if err != nil {
		t.Fatalf("UpdateGoal returned error: %v", err)
	}
	if updated.Title != "Atualizado" || updated.TargetValue != 42 || updated.Unit != "km" {
		t.Fatalf("unexpected goal %+v", updated)
	}

	empty := "  "
	if _, err := svc.UpdateGoal(ctx, 1, created.ID, UpdateGoalInput{Title: &empty}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for blank title, got %v", err)
	}
}

func TestServiceLogProgressUpdatesCurrentValueWhenLatest(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestService(now)
	ctx := context.Background()

	goal, err := svc.CreateGoal(ctx, 1, CreateGoalInput{Title: "Ler livros", TargetValue: 24})
	if err != nil {
		t.Fatalf("CreateGoal returned error: %v", err)
	}

	if _, err := svc.LogProgress(ctx, 1, goal.ID, LogProgressInput{Value: 3, Note: "fevereiro"}); err != nil {
		t.Fatalf("LogProgress returned error: %v", err)
	}
	reloaded, _ := svc.GetGoal(ctx, 1, goal.ID)
	if reloaded.CurrentValue != 3 {
		t.Fatalf("expected current value 3, got %v", reloaded.CurrentValue)
	}

	earlier := now.Add(-72 * time.Hour)
	log, err := svc.LogProgress(ctx, 1, goal.ID, LogProgressInput{Value: 1, LoggedAt: &earlier})
	if err != nil {
		t.Fatalf("LogProgress returned error: %v", err)
	}
	if !log.LoggedAt.Equal(earlier) {
		t.Fatalf("expected explicit timestamp to be kept, got %v", log.LoggedAt)
	}
	reloaded, _ = svc.GetGoal(ctx, 1, goal.ID)
	if reloaded.CurrentValue != 3 {
		t.Fatalf("backfilled sample must not replace current value, got %v", reloaded.CurrentValue)
	}

	logs, err := svc.ListProgress(ctx, 1, goal.ID)
	if err != nil {
		t.Fatalf("ListProgress returned error: %v", err)
	}
	if len(logs) != 2 || logs[0].Value != 1 || logs[1].Value != 3 {
		t.Fatalf("expected chronological samples, got %+v", logs)
	}
}

func TestServiceLogProgressRejectsNegative(t *testing.T) {
	svc := newTestService(time.Now())
	ctx := context.Background()
	goal, _ := svc.CreateGoal(ctx, 1, CreateGoalInput{Title: "Meta"})

	if _, err := svc.LogProgress(ctx, 1, goal.ID, LogProgressInput{Value: -2}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceMilestonesOrderedByDueDate(t *testing.T) {
	svc := newTestService(time.Now())
	ctx := context.Background()
	goal, _ := svc.CreateGoal(ctx, 1, CreateGoalInput{Title: "Maratona"})

	june := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	march := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []CreateMilestoneInput{
		{Name: "Sem data"},
		{Name: "Meia maratona", DueDate: &june},
		{Name: "10 km", DueDate: &march},
	} {
		if _, err := svc.AddMilestone(ctx, 1, goal.ID, in); err != nil {
			t.Fatalf("AddMilestone returned error: %v", err)
		}
	}

	milestones, err := svc.ListMilestones(ctx, 1, goal.ID)
	if err != nil {
		t.Fatalf("ListMilestones returned error: %v", err)
	}
	names := []string{milestones[0].Name, milestones[1].Name, milestones[2].Name}
	if names[0] != "10 km" || names[1] != "Meia maratona" || names[2] != "Sem data" {
		t.Fatalf("unexpected order %v", names)
	}

	if _, err := svc.AddMilestone(ctx, 1, goal.ID, CreateMilestoneInput{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if err := svc.DeleteMilestone(ctx, 1, goal.ID, milestones[0].ID); err != nil {
		t.Fatalf("DeleteMilestone returned error: %v", err)
	}
	remaining, _ := svc.ListMilestones(ctx, 1, goal.ID)
	if len(remaining) != 2 {
		t.Fatalf("expected 2 milestones after delete, got %d", len(remaining))
	}
}

func TestServiceDeleteGoalCascades(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	goal, _ := svc.CreateGoal(ctx, 1, CreateGoalInput{Title: "Meta"})
	if _, err := svc.LogProgress(ctx, 1, goal.ID, LogProgressInput{Value: 1}); err != nil {
		t.Fatalf("LogProgress returned error: %v", err)
	}
	if _, err := svc.AddMilestone(ctx, 1, goal.ID, CreateMilestoneInput{Name: "Marco"}); err != nil {
		t.Fatalf("AddMilestone returned error: %v", err)
	}

	if err := svc.DeleteGoal(ctx, 1, goal.ID); err != nil {
		t.Fatalf("DeleteGoal returned error: %v", err)
	}
	entries, _ := svc.ListProgressForOwner(ctx, 1)
	if len(entries) != 0 {
		t.Fatalf("expected progress to be removed, got %d entries", len(entries))
	}
	milestones, _ := repo.ListMilestones(ctx, goal.ID)
	if len(milestones) != 0 {
		t.Fatalf("expected milestones to be removed, got %d", len(milestones))
	}
}

func TestServiceSaveReviewReplacesSameMonth(t *testing.T) {
	now := time.Date(2025, 4, 18, 9, 0, 0, 0, time.UTC)
	svc := newTestService(now)
	ctx := context.Background()

	first, err := svc.SaveReview(ctx, 1, now, "Bom começo")
	if err != nil {
		t.Fatalf("SaveReview returned error: %v", err)
	}
	if !first.Month.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected month start, got %v", first.Month)
	}

	second, err := svc.SaveReview(ctx, 1, now.AddDate(0, 0, 5), "Ajustar rotina")
	if err != nil {
		t.Fatalf("SaveReview returned error: %v", err)
	}
	if second.ID != first.ID || second.Reflections != "Ajustar rotina" {
		t.Fatalf("expected same review replaced, got %+v", second)
	}

	if _, err := svc.SaveReview(ctx, 1, now.AddDate(0, -1, 0), "Março"); err != nil {
		t.Fatalf("SaveReview returned error: %v", err)
	}
	reviews, err := svc.ListReviews(ctx, 1, 0)
	if err != nil {
		t.Fatalf("ListReviews returned error: %v", err)
	}
	if len(reviews) != 2 || reviews[0].Reflections != "Ajustar rotina" {
		t.Fatalf("unexpected reviews %+v", reviews)
	}

	if _, err := svc.SaveReview(ctx, 1, now, "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty reflections, got %v", err)
	}
}
