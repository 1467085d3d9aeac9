package errors

import (
	"github.com/pkg/errors"
)

// Storage and identity sentinels shared by the repos and services.
var (
	// Identity errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserBlocked        = errors.New("user is blocked")
	ErrUserNotFound       = errors.New("user not found")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Lookup errors
	ErrClientNotFound   = errors.New("client not found")
	ErrDomainNotFound   = errors.New("domain not found")
	ErrResourceNotFound = errors.New("resource not found")

	ErrNotFound = errors.New("not found")
)

// IsNotFound reports whether err is one of the lookup sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrDomainNotFound) ||
		errors.Is(err, ErrResourceNotFound)
}
