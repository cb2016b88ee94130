// ABOUTME: Error values returned by the token auth provider.
// ABOUTME: Distinguishes bad credentials, missing sessions, and forced logouts.

package authprovider

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoggedIn means no usable session is stored.
	ErrNotLoggedIn = errors.New("user is not logged in")
	// ErrNoSession means the session item is absent.
	ErrNoSession = errors.New("no auth data in session store")
	// ErrInvalidSession means the stored record lacks required fields.
	ErrInvalidSession = errors.New("invalid auth data in session store")
	// ErrForceLogout is returned by CheckError for 401 and 403 responses.
	ErrForceLogout = errors.New("session rejected by server")
)

// AuthenticationError is returned by Login when the token endpoint
// answers with a non-2xx status.
type AuthenticationError struct {
	Status     int
	StatusText string
}

func (e *AuthenticationError) Error() string {
	return e.StatusText
}

func (e *AuthenticationError) StatusCode() int {
	return e.Status
}

// statusCoder is implemented by errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// StatusOf extracts the HTTP status from err, or 0 when it has none.
func StatusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

func forceLogout(cause error) error {
	return fmt.Errorf("%w: %w", ErrForceLogout, cause)
}
