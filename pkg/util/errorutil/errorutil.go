package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes exposed in the HTTP envelope.
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadySubmitted  = "ALREADY_SUBMITTED"
	CodeConflict          = "CONFLICT"
	CodeDependencyFailure = "DEPENDENCY_FAILURE"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInternal          = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

// NewInvalidTransition reports a state machine or rule violation.
func NewInvalidTransition(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidTransition, message, http.StatusUnprocessableEntity, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewAlreadySubmitted reports a duplicate one-time write.
func NewAlreadySubmitted(message string, details map[string]any) error {
	return NewDomainError(CodeAlreadySubmitted, message, http.StatusConflict, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewDependencyFailure wraps an unreachable collaborator. Callers log it; core
// mutations never return it.
func NewDependencyFailure(dependency string, err error) error {
	return &DomainError{
		Code:       CodeDependencyFailure,
		Message:    fmt.Sprintf("%s unavailable", dependency),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"dependency": dependency},
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err carries the given DomainError code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

func MapError(err error) error {
	return ToDomainError(err)
}
