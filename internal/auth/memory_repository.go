package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRepository keeps users in process memory. It enforces the same
// uniqueness rules as the SQL schema.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]User
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[int64]User)}
}

func (r *MemoryRepository) FindBySubject(_ context.Context, subjectID string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.SubjectID == subjectID {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) Create(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.SubjectID == user.SubjectID || existing.Email == user.Email {
			return User{}, fmt.Errorf("%w: %s", ErrDuplicateUser, user.Email)
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now().UTC()
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryRepository) UpdateProfile(_ context.Context, id int64, email, displayName string, pictureURL *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return fmt.Errorf("auth: user %d not found", id)
	}
	for otherID, existing := range r.users {
		if otherID != id && existing.Email == email {
			return fmt.Errorf("%w: %s", ErrDuplicateUser, email)
		}
	}
	user.Email = email
	user.DisplayName = displayName
	user.PictureURL = pictureURL
	r.users[id] = user
	return nil
}
