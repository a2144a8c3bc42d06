package model

import "errors"

var (
	// User related errors
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")

	// Credential related errors. ErrInvalidCredentials carries identical
	// wording for unknown-email and wrong-password so callers cannot
	// enumerate accounts. ErrCredentialInvalid covers a missing, expired or
	// otherwise unresolvable session/token on a protected request.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCredentialInvalid  = errors.New("credential invalid or expired")
	ErrResetTokenInvalid  = errors.New("invalid or expired reset token")

	// Permission/Access related errors
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")

	// Session related errors
	ErrSessionNotFound = errors.New("session not found")

	// Task related errors
	ErrTaskNotFound = errors.New("task not found")

	// Infrastructure errors. ErrStoreUnavailable is surfaced as a 500 so
	// operators can tell a down session backend from a logged-out user.
	ErrStoreUnavailable = errors.New("data store unavailable")
	ErrDeliveryFailed   = errors.New("email could not be sent")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
