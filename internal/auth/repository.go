package auth

import "context"

// Repository defines the persistence contract for users. Lookups return
// (nil, nil) when no row matches. Create returns ErrDuplicateUser when a
// unique constraint on subject_id or email rejects the row.
type Repository interface {
	FindBySubject(ctx context.Context, subjectID string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user User) (User, error)
	UpdateProfile(ctx context.Context, id int64, email, displayName string, pictureURL *string) error
}
