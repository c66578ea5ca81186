// Package common defines shared constants and sentinel errors used across
// the cache, remote and controller layers. Callers should use errors.Is and
// errors.As to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Input errors.
	ErrValidation = errors.New("validation error")
	ErrEmptyInput = errors.New("csv file is empty or invalid")

	// Session errors.
	ErrSessionNotReady = errors.New("session not ready")
	ErrNoUserSelected  = errors.New("no user selected")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrAlreadyExists   = errors.New("already exists")

	// Remote errors.
	ErrUnavailable  = errors.New("remote store unavailable")
	ErrRemote       = errors.New("remote operation failed")
	ErrMigration    = errors.New("migration failed")
	ErrInvalidToken = errors.New("invalid token")
)

// ValidationError reports malformed or incomplete input for a single field.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError is a shorthand for &ValidationError{...}.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// RemoteError is the failure result of a remote store operation. Every
// error returned by the remote sync client is a *RemoteError.
type RemoteError struct {
	Op        string
	AccountID string
	Path      string
	Err       error
}

func (e *RemoteError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("remote %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("remote %s (account %s): %v", e.Op, e.AccountID, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// MigrationError is returned when the one-time local to remote migration
// stops partway. UsersDone and EntriesDone count the upserts that completed
// before the failure.
type MigrationError struct {
	AccountID   string
	UsersDone   int
	EntriesDone int
	Err         error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration to account %s stopped after %d users, %d entries: %v",
		e.AccountID, e.UsersDone, e.EntriesDone, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

func (e *MigrationError) Is(target error) bool {
	return target == ErrMigration
}
