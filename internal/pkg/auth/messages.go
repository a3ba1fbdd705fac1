package auth

import (
	"errors"

	"github.com/ManuelReschke/TrafficWatch/internal/pkg/platform"
)

const (
	MsgVerifyEmailFirst  = "Please verify your email address before signing in. Check your inbox for a verification link."
	MsgRegistered        = "Registration successful! Please check your email to verify your account."
	MsgInvalidLogin      = "Invalid email or password."
	MsgResetSent         = "Password reset link has been sent to your email"
	MsgPasswordUpdated   = "Password updated successfully"
	MsgVerificationSent  = "Verification email sent. Please check your inbox."
	MsgEmailVerified     = "Your email address has been verified. You can now sign in."
	MsgLinkInvalid       = "This link is invalid or has expired. Please request a new one."
	MsgServiceDown       = "We could not reach the server. Please check your connection and try again."
	MsgEmailTaken        = "This email address is already registered."
	MsgPhoneTaken        = "This phone number is already registered."
	MsgPlateTaken        = "This vehicle plate number is already registered."
	MsgSignedOut         = "You have been signed out."
	MsgMissingCredential = "Please enter your email and password."
)

var ErrMissingCredentials = errors.New(MsgMissingCredential)

// DuplicateError reports a registration that collides with an existing account.
type DuplicateError struct {
	Field   string
	Message string
}

func (e *DuplicateError) Error() string {
	return e.Message
}

// FieldErrors maps form fields to validation messages.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	for _, field := range []string{"full_name", "email", "password", "confirm_password", "phone_number", "vehicle_plate"} {
		if msg, ok := f[field]; ok {
			return msg
		}
	}
	for _, msg := range f {
		return msg
	}
	return "invalid input"
}

// Message turns an auth error into text for the user.
func Message(err error) string {
	var dup *DuplicateError
	var fields FieldErrors
	switch {
	case err == nil:
		return ""
	case errors.As(err, &dup):
		return dup.Message
	case errors.As(err, &fields):
		return fields.Error()
	case errors.Is(err, ErrMissingCredentials):
		return MsgMissingCredential
	case errors.Is(err, platform.ErrInvalidCredentials):
		return MsgInvalidLogin
	case errors.Is(err, platform.ErrEmailNotConfirmed):
		return MsgVerifyEmailFirst
	case errors.Is(err, platform.ErrEmailTaken):
		return MsgEmailTaken
	case errors.Is(err, platform.ErrWeakPassword):
		return "Password must be at least 8 characters"
	case errors.Is(err, platform.ErrInvalidToken), errors.Is(err, platform.ErrSessionExpired), errors.Is(err, platform.ErrSessionMissing):
		return MsgLinkInvalid
	default:
		return MsgServiceDown
	}
}
