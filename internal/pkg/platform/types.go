package platform

import (
	"time"

	"github.com/ManuelReschke/TrafficWatch/app/models"
)

// User is the identity as seen by clients.
type User struct {
	ID               string                  `json:"id"`
	Email            string                  `json:"email"`
	EmailConfirmedAt *time.Time              `json:"email_confirmed_at,omitempty"`
	Metadata         models.IdentityMetadata `json:"user_metadata"`
}

func (u *User) IsConfirmed() bool {
	return u != nil && u.EmailConfirmedAt != nil
}

// Session is what a client persists after signing in.
type Session struct {
	ID           string    `json:"id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is no longer usable.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ExpiresWithin reports whether the access token expires inside d.
func (s *Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	return !now.Add(d).Before(s.ExpiresAt)
}

type SignUpRequest struct {
	Email      string
	Password   string
	Metadata   models.IdentityMetadata
	RedirectTo string
}

// ProviderUser is an identity asserted by an OAuth provider.
type ProviderUser struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
	AccessToken    string
	RefreshToken   string
	ExpiresAt      *time.Time
}

func toUser(identity *models.Identity) *User {
	return &User{
		ID:               identity.ID,
		Email:            identity.Email,
		EmailConfirmedAt: identity.EmailConfirmedAt,
		Metadata:         identity.Metadata,
	}
}
