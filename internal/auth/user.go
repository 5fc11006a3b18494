package auth

import "time"

// Fixed identity of the shared guest account.
const (
	GuestSubject     = "guest"
	GuestEmail       = "guest@local"
	GuestDisplayName = "Modo convidado"
)

// User is the persisted identity record.
type User struct {
	ID          int64
	SubjectID   string
	Email       string
	DisplayName string
	PictureURL  *string
	CreatedAt   time.Time
}

// Profile returns the public projection stored in the session.
func (u User) Profile() Profile {
	p := Profile{
		ID:          u.ID,
		SubjectID:   u.SubjectID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
	}
	if u.PictureURL != nil {
		p.PictureURL = *u.PictureURL
	}
	return p
}

// Profile is what handlers know about the signed-in user.
type Profile struct {
	ID          int64  `json:"id"`
	SubjectID   string `json:"subject_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PictureURL  string `json:"picture_url,omitempty"`
}

// IsGuest reports whether the profile belongs to the shared guest account.
func (p Profile) IsGuest() bool {
	return p.SubjectID == GuestSubject
}

// Identity is the result of a successful code exchange.
type Identity struct {
	SubjectID     string
	Email         string
	EmailVerified bool
	DisplayName   string
	PictureURL    string
	// Credential is the serialized token response. It lives in the session only.
	Credential []byte
}

// GoogleClaims contains the relevant claims from a Google ID token.
type GoogleClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}
