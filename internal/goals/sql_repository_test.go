package goals

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"planos/internal/platform/database"
	"planos/internal/platform/migrate"
)

func newSQLiteService(t *testing.T) (*Service, int64) {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := migrate.Apply(ctx, db, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	var ownerID int64
	if err := db.GetContext(ctx, &ownerID,
		`INSERT INTO users (subject_id, email, display_name) VALUES ('u1', 'a@b.com', 'Ana') RETURNING id`,
	); err != nil {
		t.Fatalf("insert owner: %v", err)
	}
	return NewService(NewSQLRepository(db)), ownerID
}

func TestSQLRepositoryGoalLifecycle(t *testing.T) {
	svc, owner := newSQLiteService(t)
	ctx := context.Background()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	goal, err := svc.CreateGoal(ctx, owner, CreateGoalInput{
		Title:        "Correr 500 km",
		TargetMetric: "distância",
		TargetValue:  500,
		Unit:         "km",
		StartDate:    &start,
		EndDate:      &end,
	})
	if err != nil {
		t.Fatalf("CreateGoal returned error: %v", err)
	}
	if goal.ID == 0 {
		t.Fatal("expected generated id")
	}

	loaded, err := svc.GetGoal(ctx, owner, goal.ID)
	if err != nil {
		t.Fatalf("GetGoal returned error: %v", err)
	}
	if loaded.Title != "Correr 500 km" || loaded.EndDate == nil || !loaded.EndDate.Equal(end) {
		t.Fatalf("unexpected goal %+v", loaded)
	}

	if _, err := svc.GetGoal(ctx, owner+1, goal.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other owner, got %v", err)
	}

	category := "saúde"
	updated, err := svc.UpdateGoal(ctx, owner, goal.ID, UpdateGoalInput{Category: &category})
	if err != nil {
		t.Fatalf("UpdateGoal returned error: %v", err)
	}
	if updated.Category != "saúde" || updated.Title != "Correr 500 km" {
		t.Fatalf("unexpected update %+v", updated)
	}

	goals, err := svc.ListGoals(ctx, owner)
	if err != nil || len(goals) != 1 {
		t.Fatalf("ListGoals = %v, %v", goals, err)
	}

	if err := svc.DeleteGoal(ctx, owner, goal.ID); err != nil {
		t.Fatalf("DeleteGoal returned error: %v", err)
	}
	if err := svc.DeleteGoal(ctx, owner, goal.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSQLRepositoryProgressAndMilestones(t *testing.T) {
	svc, owner := newSQLiteService(t)
	ctx := context.Background()

	goal, err := svc.CreateGoal(ctx, owner, CreateGoalInput{Title: "Ler 24 livros", TargetValue: 24})
	if err != nil {
		t.Fatalf("CreateGoal returned error: %v", err)
	}

	jan := time.Date(2025, 1, 31, 20, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 28, 20, 0, 0, 0, time.UTC)
	if _, err := svc.LogProgress(ctx, owner, goal.ID, LogProgressInput{Value: 4, LoggedAt: &feb, Note: "fevereiro"}); err != nil {
		t.Fatalf("LogProgress returned error: %v", err)
	}
	if _, err := svc.LogProgress(ctx, owner, goal.ID, LogProgressInput{Value: 2, LoggedAt: &jan}); err != nil {
		t.Fatalf("LogProgress returned error: %v", err)
	}

	reloaded, _ := svc.GetGoal(ctx, owner, goal.ID)
	if reloaded.CurrentValue != 4 {
		t.Fatalf("expected latest sample as current value, got %v", reloaded.CurrentValue)
	}

	entries, err := svc.ListProgressForOwner(ctx, owner)
	if err != nil {
		t.Fatalf("ListProgressForOwner returned error: %v", err)
	}
	if len(entries) != 2 || entries[0].Value != 2 || entries[1].GoalTitle != "Ler 24 livros" {
		t.Fatalf("unexpected entries %+v", entries)
	}

	due := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	half := 12.0
	if _, err := svc.AddMilestone(ctx, owner, goal.ID, CreateMilestoneInput{Name: "Sem prazo"}); err != nil {
		t.Fatalf("AddMilestone returned error: %v", err)
	}
	if _, err := svc.AddMilestone(ctx, owner, goal.ID, CreateMilestoneInput{Name: "Metade", DueDate: &due, TargetValue: &half}); err != nil {
		t.Fatalf("AddMilestone returned error: %v", err)
	}
	milestones, err := svc.ListMilestones(ctx, owner, goal.ID)
	if err != nil {
		t.Fatalf("ListMilestones returned error: %v", err)
	}
	if len(milestones) != 2 || milestones[0].Name != "Metade" || milestones[0].TargetValue == nil {
		t.Fatalf("unexpected milestones %+v", milestones)
	}

	overview, err := svc.Overview(ctx, owner)
	if err != nil {
		t.Fatalf("Overview returned error: %v", err)
	}
	if overview.Completion != 16 || overview.LastUpdate != "28/02/2025" {
		t.Fatalf("unexpected overview %+v", overview)
	}
}

func TestSQLRepositoryReviewsUpsert(t *testing.T) {
	svc, owner := newSQLiteService(t)
	ctx := context.Background()
	month := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)

	first, err := svc.SaveReview(ctx, owner, month, "Primeira versão")
	if err != nil {
		t.Fatalf("SaveReview returned error: %v", err)
	}
	second, err := svc.SaveReview(ctx, owner, month, "Versão revisada")
	if err != nil {
		t.Fatalf("SaveReview returned error: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected upsert to keep id, got %d and %d", first.ID, second.ID)
	}

	reviews, err := svc.ListReviews(ctx, owner, 5)
	if err != nil {
		t.Fatalf("ListReviews returned error: %v", err)
	}
	if len(reviews) != 1 || reviews[0].Reflections != "Versão revisada" {
		t.Fatalf("unexpected reviews %+v", reviews)
	}
}
