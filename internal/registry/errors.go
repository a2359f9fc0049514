package registry

import (
	"fmt"
	"strings"
)

// ValidationError reports invalid input to a registry operation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error with a formatted message.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Kind string
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Ref)
}

// ConflictError reports an operation refused because it would violate a
// uniqueness or non-emptiness invariant.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflictError creates a conflict error with a formatted message.
func NewConflictError(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// As lets a conflict error satisfy errors.As checks for ValidationError.
// Conflicts are caller-correctable invalid writes; only the HTTP layer
// distinguishes the two.
func (e *ConflictError) As(target interface{}) bool {
	if v, ok := target.(**ValidationError); ok {
		*v = &ValidationError{Message: e.Message}
		return true
	}
	return false
}

// SecurityError reports custom tool source rejected by the static screen.
type SecurityError struct {
	Pattern string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("function source contains disallowed pattern %q", e.Pattern)
}

// DisabledError reports a resolved model that is administratively disabled.
type DisabledError struct {
	Name string
}

func (e *DisabledError) Error() string {
	return fmt.Sprintf("model %q is disabled", e.Name)
}

// InactiveVersionError reports a request for a version outside the model's
// active set. It names the versions a caller may use instead.
type InactiveVersionError struct {
	Name           string
	Version        string
	ActiveVersions []string
}

func (e *InactiveVersionError) Error() string {
	return fmt.Sprintf("version %q of model %q is not active (active versions: %s)",
		e.Version, e.Name, strings.Join(e.ActiveVersions, ", "))
}
