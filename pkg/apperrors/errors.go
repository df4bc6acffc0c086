package apperrors

import (
	"errors"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidRole     = errors.New("invalid role")
	ErrRateLimited     = errors.New("rate limited")
)

// FieldIssue is a single failing field with a client-usable path.
type FieldIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError carries every field issue found in a request body.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Path+" "+issue.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(path, message string) *ValidationError {
	return &ValidationError{Issues: []FieldIssue{{Path: path, Message: message}}}
}

// DomainError is a business rule rejection, e.g. submitting to a closed challenge.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a DomainError with the given message.
func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// IsDomain reports whether err wraps a *DomainError.
func IsDomain(err error) (*DomainError, bool) {
	var d *DomainError
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
