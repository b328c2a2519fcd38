package app

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound maps to 404 in the HTTP layer.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the permission table denies the caller.
	ErrForbidden = errors.New("forbidden")

	// ErrSelfRoleChange is returned when a non-admin tries to change their
	// own role through the profile endpoint.
	ErrSelfRoleChange = errors.New("cannot change own role")

	// ErrInvalidConfirmationCode is user-facing; the HTTP layer sends it as
	// plain text with a 400.
	ErrInvalidConfirmationCode = errors.New("invalid confirmation code")
)

// ValidationError carries field-level messages and maps to 400.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func invalidField(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// AsValidationError unwraps err into a ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
