// Package domain holds the quote revision model, its lifecycle rules and the
// errors adapters translate into HTTP statuses and CLI exit codes. Nothing
// here knows about transport or storage.
package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error built by this package wraps exactly one of them;
// match with errors.Is or the Is helpers below.
var (
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the revision exists under another tenant. Adapters
	// must report it exactly like ErrNotFound.
	ErrForbidden = errors.New("forbidden")

	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidBundle = errors.New("invalid bundle")
	ErrInvalidState  = errors.New("invalid state")

	// ErrConflict marks a lost race on a version number or on the active
	// flag. The transaction can be retried.
	ErrConflict = errors.New("conflict")

	ErrUnavailable = errors.New("unavailable")
)

// kindError is a message tagged with one of the kinds above.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func newKind(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports that no entity with id exists for the tenant.
func NewNotFoundError(entity, id string) error {
	if id == "" {
		return newKind(ErrNotFound, "%s not found", entity)
	}

	return newKind(ErrNotFound, "%s %q not found", entity, id)
}

// NewForbiddenError reports an operation on another tenant's revision.
func NewForbiddenError(operation, reason string) error {
	if reason == "" {
		return newKind(ErrForbidden, "%s forbidden", operation)
	}

	return newKind(ErrForbidden, "%s forbidden: %s", operation, reason)
}

// NewInvalidBundleError rejects a bundle reference that is missing, belongs
// to another tenant or is not a container.
func NewInvalidBundleError(bundleID, reason string) error {
	return newKind(ErrInvalidBundle, "bundle %q rejected: %s", bundleID, reason)
}

// NewConflictError reports a lost race on entity.
func NewConflictError(entity, reason string) error {
	return newKind(ErrConflict, "%s conflict: %s", entity, reason)
}

// NewConflictErrorWithDetails adds store specifics, such as a constraint name.
func NewConflictErrorWithDetails(entity, reason, details string) error {
	return newKind(ErrConflict, "%s conflict: %s (%s)", entity, reason, details)
}

// NewUnavailableError reports that dependency cannot be reached.
func NewUnavailableError(dependency, reason string) error {
	if reason == "" {
		return newKind(ErrUnavailable, "%s unavailable", dependency)
	}

	return newKind(ErrUnavailable, "%s unavailable: %s", dependency, reason)
}

// InvalidInputError rejects one field of a payload. Adapters surface Field
// and Message to the caller.
type InvalidInputError struct {
	Field   string
	Message string
	Value   any
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}

	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// NewInvalidInputError rejects field with message.
func NewInvalidInputError(field, message string) error {
	return &InvalidInputError{Field: field, Message: message}
}

// NewInvalidInputErrorWithValue also records the rejected value.
func NewInvalidInputErrorWithValue(field, message string, value any) error {
	return &InvalidInputError{Field: field, Message: message, Value: value}
}

// InvalidStateError refuses an operation the revision's lifecycle status
// does not allow, e.g. activating an ACCEPTED revision.
type InvalidStateError struct {
	Operation  string
	RevisionID string
	Status     LifecycleStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s revision %q: it is %s", e.Operation, e.RevisionID, e.Status)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// NewInvalidStateError refuses operation on revisionID in status.
func NewInvalidStateError(operation, revisionID string, status LifecycleStatus) error {
	return &InvalidStateError{Operation: operation, RevisionID: revisionID, Status: status}
}

func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsForbidden(err error) bool    { return errors.Is(err, ErrForbidden) }
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }
func IsConflict(err error) bool     { return errors.Is(err, ErrConflict) }
func IsUnavailable(err error) bool  { return errors.Is(err, ErrUnavailable) }

func IsInvalidBundle(err error) bool { return errors.Is(err, ErrInvalidBundle) }
