// Package service implements the planner operations on top of the
// repositories: access checks, recurrence expansion, imports and the
// transaction boundaries around them.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/phdplan/internal/recurrence"
	"github.com/iliyamo/phdplan/internal/repository"
)

// ValidationError reports input the caller can correct.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TxError wraps a persistence failure inside a unit of work. The whole
// unit was rolled back.
type TxError struct {
	Op  string
	Err error
}

func (e *TxError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TxError) Unwrap() error { return e.Err }

// ErrInvalidCredentials is returned for a bad email/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// IsClientError reports whether err is caused by the request rather than
// the system.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, recurrence.ErrEmptyRecurrence) ||
		errors.Is(err, recurrence.ErrInvalidRule) ||
		errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrForbidden) ||
		errors.Is(err, repository.ErrConflict) ||
		errors.Is(err, ErrInvalidCredentials)
}

// txFail labels a failed unit of work. Domain errors pass through
// unchanged so callers can still classify them.
func txFail(op string, err error) error {
	if err == nil || IsClientError(err) {
		return err
	}
	return &TxError{Op: op, Err: err}
}
