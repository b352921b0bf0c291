// Package common defines constants and sentinel errors shared by the server
// and the device client. Callers should match errors with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal       = errors.New("internal error")
	ErrorUnauthorized   = errors.New("unauthorized")
	ErrForbidden        = errors.New("cannot push deltas for other users")
	ErrStoreUnavailable = errors.New("store unavailable")

	// Validation errors for a single delta.
	ErrInvalidDelta = errors.New("invalid delta")

	// Auth errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
