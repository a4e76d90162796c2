package game

import (
	"errors"
	"fmt"
)

// ValidationError means the caller asked for something the room's rules forbid.
// Nothing is written when it is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// AuthError means a private room's password did not match.
type AuthError struct {
	RoomID string
}

func (e *AuthError) Error() string { return fmt.Sprintf("auth: wrong password for room %s", e.RoomID) }

// NotFoundError means the room is gone, typically after a race with its deletion.
type NotFoundError struct {
	RoomID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("room %s no longer exists", e.RoomID) }

// ExternalStoreError wraps any failure of the backing store.
type ExternalStoreError struct {
	Op  string
	Err error
}

func (e *ExternalStoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }

func (e *ExternalStoreError) Unwrap() error { return e.Err }

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Error codes exposed to clients.
const (
	CodeValidation = "validation"
	CodeAuth       = "auth"
	CodeNotFound   = "not_found"
	CodeStore      = "store"
	CodeInternal   = "internal"
)

// Code classifies err into one of the client-facing codes.
func Code(err error) string {
	var (
		ve *ValidationError
		ae *AuthError
		ne *NotFoundError
		se *ExternalStoreError
	)
	switch {
	case errors.As(err, &ve):
		return CodeValidation
	case errors.As(err, &ae):
		return CodeAuth
	case errors.As(err, &ne):
		return CodeNotFound
	case errors.As(err, &se):
		return CodeStore
	default:
		return CodeInternal
	}
}
