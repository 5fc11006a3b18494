package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Service provides user provisioning on top of a Repository.
type Service struct {
	repo Repository
}

// NewService creates a new auth Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnsureGuestUser returns the shared guest account, creating it on first use.
// A concurrent creator winning the insert is resolved by reading its row.
func (s *Service) EnsureGuestUser(ctx context.Context) (Profile, error) {
	existing, err := s.repo.FindByEmail(ctx, GuestEmail)
	if err != nil {
		return Profile{}, fmt.Errorf("find guest user: %w", err)
	}
	if existing != nil {
		return existing.Profile(), nil
	}

	created, err := s.repo.Create(ctx, User{
		SubjectID:   GuestSubject,
		Email:       GuestEmail,
		DisplayName: GuestDisplayName,
	})
	if err == nil {
		return created.Profile(), nil
	}
	if !errors.Is(err, ErrDuplicateUser) {
		return Profile{}, fmt.Errorf("create guest user: %w", err)
	}

	existing, err = s.repo.FindByEmail(ctx, GuestEmail)
	if err != nil {
		return Profile{}, fmt.Errorf("refetch guest user: %w", err)
	}
	if existing == nil {
		return Profile{}, fmt.Errorf("refetch guest user: %w", ErrDuplicateUser)
	}
	return existing.Profile(), nil
}

// EnsureUser creates the local user for an identity or refreshes its profile.
func (s *Service) EnsureUser(ctx context.Context, identity Identity) (Profile, error) {
	subject := strings.TrimSpace(identity.SubjectID)
	if subject == "" {
		return Profile{}, fmt.Errorf("ensure user: %w: empty subject", ErrAuthExchange)
	}

	displayName := strings.TrimSpace(identity.DisplayName)
	if displayName == "" {
		displayName = identity.Email
	}
	var picture *string
	if identity.PictureURL != "" {
		p := identity.PictureURL
		picture = &p
	}

	existing, err := s.repo.FindBySubject(ctx, subject)
	if err != nil {
		return Profile{}, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return s.refresh(ctx, *existing, identity.Email, displayName, picture)
	}

	created, createErr := s.repo.Create(ctx, User{
		SubjectID:   subject,
		Email:       identity.Email,
		DisplayName: displayName,
		PictureURL:  picture,
	})
	if createErr == nil {
		return created.Profile(), nil
	}
	if !errors.Is(createErr, ErrDuplicateUser) {
		return Profile{}, fmt.Errorf("create user: %w", createErr)
	}

	existing, err = s.repo.FindBySubject(ctx, subject)
	if err != nil {
		return Profile{}, fmt.Errorf("refetch user: %w", err)
	}
	if existing == nil {
		// The email belongs to a different subject.
		return Profile{}, fmt.Errorf("create user: %w", createErr)
	}
	return existing.Profile(), nil
}

// FindByEmail returns the user registered with email, or nil.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *Service) refresh(ctx context.Context, user User, email, displayName string, picture *string) (Profile, error) {
	if user.Email == email && user.DisplayName == displayName && samePicture(user.PictureURL, picture) {
		return user.Profile(), nil
	}
	if err := s.repo.UpdateProfile(ctx, user.ID, email, displayName, picture); err != nil {
		return Profile{}, fmt.Errorf("update user profile: %w", err)
	}
	user.Email = email
	user.DisplayName = displayName
	user.PictureURL = picture
	return user.Profile(), nil
}

func samePicture(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
