package platform

import "errors"

// Typed failures returned by the platform. Callers match them with errors.Is.
var (
	ErrNotFound           = errors.New("platform: not found")
	ErrInvalidCredentials = errors.New("platform: invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("platform: email not confirmed")
	ErrEmailTaken         = errors.New("platform: email already registered")
	ErrWeakPassword       = errors.New("platform: password should be at least 8 characters")
	ErrSessionMissing     = errors.New("platform: auth session missing")
	ErrSessionExpired     = errors.New("platform: session expired")
	ErrInvalidToken       = errors.New("platform: invalid or expired token")
	ErrPermissionDenied   = errors.New("platform: permission denied")
	ErrStorage            = errors.New("platform: storage error")
	ErrUnavailable        = errors.New("platform: service unavailable")
	ErrWeakSecret         = errors.New("platform: token signing secret must be set, at least 32 bytes and differ from the anon key")
)

const (
	MinPasswordLength = 8
	MinSecretLength   = 32
)
