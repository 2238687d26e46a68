package sap

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired is returned when the Service Layer rejects the
	// current session. The caller decides whether to re-authenticate.
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidPhone is returned for phone numbers that cannot be
	// normalized to the 12-digit national form.
	ErrInvalidPhone = errors.New("invalid phone number")
)

// AuthError is a rejected login: bad credentials, unreachable host, or
// a malformed login response. The session store is left empty.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "service layer login failed: " + e.Message
}

// ServiceError is a non-auth HTTP failure from the Service Layer.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service layer error (status %d): %s", e.StatusCode, e.Message)
}
