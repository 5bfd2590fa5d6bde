package shared

import "errors"

var (
	// ErrNotFound indicates resource not found or not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionExpired occurs when a session id no longer resolves.
	ErrSessionExpired = errors.New("session expired")
)
