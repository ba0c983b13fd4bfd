package client

import (
	"errors"
	"fmt"
)

// ErrMissingCredential is returned when a refresh is attempted while no
// refresh token is persisted. No network call is made in that case.
var ErrMissingCredential = errors.New("no refresh token stored")

// AuthenticationError reports rejected credentials or a rejected refresh.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Message
}

// ValidationError reports malformed registration input or a duplicate
// account.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Message
}

// APIError is any other non-2xx reply, with the server-provided message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}
