package core

import "errors"

var (
	// ErrNotAuthenticated is returned by writes attempted without a resolved
	// couple and user, before any remote call.
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
)

// AuthenticationError is a failed credential exchange carrying the provider's message.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return "authentication failed: " + e.Message
}

func (e *AuthenticationError) Unwrap() error { return e.Err }
