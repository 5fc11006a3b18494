package goals

import (
	"context"
	"time"
)

const defaultReviewLimit = 12

// MonthStart returns midnight UTC of the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// SaveReview stores the owner's reflections for the month containing month,
// replacing an earlier review of the same month.
func (s *Service) SaveReview(ctx context.Context, ownerID int64, month time.Time, reflections string) (Review, error) {
	if month.IsZero() {
		month = s.now()
	}
	text := s.clean(reflections)
	if text == "" {
		return Review{}, validationErr("reflections are required")
	}

	now := s.now().UTC()
	return s.repo.SaveReview(ctx, Review{
		OwnerID:     ownerID,
		Month:       MonthStart(month),
		Reflections: text,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// ListReviews returns the owner's most recent reviews; limit <= 0 uses a year's worth.
func (s *Service) ListReviews(ctx context.Context, ownerID int64, limit int) ([]Review, error) {
	if limit <= 0 {
		limit = defaultReviewLimit
	}
	return s.repo.ListReviews(ctx, ownerID, limit)
}
