package goals

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"planos/internal/platform/database"
)

// SQLRepository persists goals to PostgreSQL or SQLite. Every method runs in
// its own transaction.
type SQLRepository struct {
	db *sqlx.DB
}

// NewSQLRepository constructs a repository backed by sqlx.
func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const goalColumns = `id, owner_id, title, description, target_metric, target_value, current_value,
    unit, category, start_date, end_date, created_at`

func (r *SQLRepository) CreateGoal(ctx context.Context, goal Goal) (Goal, error) {
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `
			INSERT INTO goals (owner_id, title, description, target_metric, target_value, current_value,
			    unit, category, start_date, end_date, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`
		return tx.GetContext(ctx, &goal.ID, tx.Rebind(query),
			goal.OwnerID,
			goal.Title,
			goal.Description,
			goal.TargetMetric,
			goal.TargetValue,
			goal.CurrentValue,
			goal.Unit,
			goal.Category,
			goal.StartDate,
			goal.EndDate,
			goal.CreatedAt,
		)
	})
	if err != nil {
		return Goal{}, err
	}
	return goal, nil
}

func (r *SQLRepository) GetGoal(ctx context.Context, ownerID, id int64) (Goal, error) {
	var goal Goal
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return getGoal(ctx, tx, ownerID, id, &goal)
	})
	if err != nil {
		return Goal{}, err
	}
	return goal, nil
}

func getGoal(ctx context.Context, tx *sqlx.Tx, ownerID, id int64, dest *Goal) error {
	query := tx.Rebind(`SELECT ` + goalColumns + ` FROM goals WHERE id = ? AND owner_id = ?`)
	if err := tx.GetContext(ctx, dest, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (r *SQLRepository) ListGoals(ctx context.Context, ownerID int64) ([]Goal, error) {
	goals := make([]Goal, 0)
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`SELECT ` + goalColumns + ` FROM goals WHERE owner_id = ? ORDER BY created_at DESC, id DESC`)
		return tx.SelectContext(ctx, &goals, query, ownerID)
	})
	if err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *SQLRepository) UpdateGoal(ctx context.Context, goal Goal) (Goal, error) {
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `
			UPDATE goals
			SET title = ?, description = ?, target_metric = ?, target_value = ?, current_value = ?,
			    unit = ?, category = ?, start_date = ?, end_date = ?
			WHERE id = ? AND owner_id = ?
		`
		res, err := tx.ExecContext(ctx, tx.Rebind(query),
			goal.Title,
			goal.Description,
			goal.TargetMetric,
			goal.TargetValue,
			goal.CurrentValue,
			goal.Unit,
			goal.Category,
			goal.StartDate,
			goal.EndDate,
			goal.ID,
			goal.OwnerID,
		)
		if err != nil {
			return err
		}
		if err := expectRow(res); err != nil {
			return err
		}
		return getGoal(ctx, tx, goal.OwnerID, goal.ID, &goal)
	})
	if err != nil {
		return Goal{}, err
	}
	return goal, nil
}

func (r *SQLRepository) DeleteGoal(ctx context.Context, ownerID, id int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM goals WHERE id = ? AND owner_id = ?`), id, ownerID)
		if err != nil {
			return err
		}
		return expectRow(res)
	})
}

func (r *SQLRepository) AddMilestone(ctx context.Context, milestone Milestone) (Milestone, error) {
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `
			INSERT INTO milestones (goal_id, name, due_date, target_value, created_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id
		`
		return tx.GetContext(ctx, &milestone.ID, tx.Rebind(query),
			milestone.GoalID,
			milestone.Name,
			milestone.DueDate,
			milestone.TargetValue,
			milestone.CreatedAt,
		)
	})
	if err != nil {
		return Milestone{}, err
	}
	return milestone, nil
}

func (r *SQLRepository) ListMilestones(ctx context.Context, goalID int64) ([]Milestone, error) {
	milestones := make([]Milestone, 0)
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `
			SELECT id, goal_id, name, due_date, target_value, created_at
			FROM milestones
			WHERE goal_id = ?
			ORDER BY CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date, id
		`
		return tx.SelectContext(ctx, &milestones, tx.Rebind(query), goalID)
	})
	if err != nil {
		return nil, err
	}
	return milestones, nil
}

func (r *SQLRepository) DeleteMilestone(ctx context.Context, goalID, id int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM milestones WHERE id = ? AND goal_id = ?`), id, goalID)
		if err != nil {
			return err
		}
		return expectRow(res)
	})
}

func (r *SQLRepository) LogProgress(ctx context.Context, log ProgressLog) (ProgressLog, error) {
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const insert = `
			INSERT INTO progress_logs (goal_id, logged_at, value, note)
			VALUES (?, ?, ?, ?)
			RETURNING id
		`
		if err := tx.GetContext(ctx, &log.ID, tx.Rebind(insert), log.GoalID, log.LoggedAt, log.Value, log.Note); err != nil {
			return err
		}

		var latestID int64
		const latest = `SELECT id FROM progress_logs WHERE goal_id = ? ORDER BY logged_at DESC, id DESC LIMIT 1`
		if err := tx.GetContext(ctx, &latestID, tx.Rebind(latest), log.GoalID); err != nil {
			return err
		}
		if latestID != log.ID {
			return nil
		}

		_, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE goals SET current_value = ? WHERE id = ?`), log.Value, log.GoalID)
		return err
	})
	if err != nil {
		return ProgressLog{}, err
	}
	return log, nil
}

func (r *SQLRepository) ListProgress(ctx context.Context, goalID int64) ([]ProgressLog, error) {
	logs := make([]ProgressLog, 0)
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `
			SELECT id, goal_id, logged_at, value, note
			FROM progress_logs
			WHERE goal_id = ?
			ORDER BY logged_at, id
		`
		return tx.SelectContext(ctx, &logs, tx.Rebind(query), goalID)
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *SQLRepository) ListProgressForOwner(ctx context.Context, ownerID int64) ([]ProgressEntry, error) {
	entries := make([]ProgressEntry, 0)
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `
			SELECT p.goal_id, g.title AS goal_title, p.logged_at, p.value, p.note
			FROM progress_logs p
			JOIN goals g ON g.id = p.goal_id
			WHERE g.owner_id = ?
			ORDER BY p.logged_at, p.id
		`
		return tx.SelectContext(ctx, &entries, tx.Rebind(query), ownerID)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *SQLRepository) SaveReview(ctx context.Context, review Review) (Review, error) {
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const upsert = `
			INSERT INTO reviews (owner_id, month, reflections, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (owner_id, month) DO UPDATE
			SET reflections = excluded.reflections, updated_at = excluded.updated_at
			RETURNING id
		`
		if err := tx.GetContext(ctx, &review.ID, tx.Rebind(upsert),
			review.OwnerID,
			review.Month,
			review.Reflections,
			review.CreatedAt,
			review.UpdatedAt,
		); err != nil {
			return err
		}

		const query = `SELECT id, owner_id, month, reflections, created_at, updated_at FROM reviews WHERE id = ?`
		return tx.GetContext(ctx, &review, tx.Rebind(query), review.ID)
	})
	if err != nil {
		return Review{}, err
	}
	return review, nil
}

func (r *SQLRepository) ListReviews(ctx context.Context, ownerID int64, limit int) ([]Review, error) {
	reviews := make([]Review, 0)
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `SELECT id, owner_id, month, reflections, created_at, updated_at
			FROM reviews WHERE owner_id = ? ORDER BY month DESC`
		args := []any{ownerID}
		if limit > 0 {
			query += ` LIMIT ?`
			args = append(args, limit)
		}
		return tx.SelectContext(ctx, &reviews, tx.Rebind(query), args...)
	})
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func expectRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
