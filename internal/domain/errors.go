package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Common domain errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// Remote errors
	ErrRemoteUnreachable  = errors.New("remote unreachable")
	ErrRemoteStatus       = errors.New("remote returned non-success status")
	ErrUnsupportedScheme  = errors.New("unsupported identifier scheme")
	ErrIncompleteTransfer = errors.New("incomplete transfer")

	// Cache errors
	ErrEmptyIdentifier = errors.New("identifier must not be empty")
	ErrLocalWrite      = errors.New("local write failed")

	// Placement errors
	ErrPlaceableNotFound = errors.New("placeable not found")
	ErrNotDownloaded     = errors.New("placeable not downloaded")
)

// StatusError is returned when the remote answers with a non-success status
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

// NewStatusError creates a new StatusError
func NewStatusError(url string, code int, status string) *StatusError {
	if status == "" {
		status = fmt.Sprintf("%d %s", code, http.StatusText(code))
	}
	return &StatusError{URL: url, StatusCode: code, Status: status}
}

// Error returns the error message
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Unwrap makes errors.Is(err, ErrRemoteStatus) hold
func (e *StatusError) Unwrap() error {
	return ErrRemoteStatus
}

// Temporary reports whether retrying later may succeed
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// StatusCodeOf returns the remote status carried by err, or 0
func StatusCodeOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// ValidationError reports an invalid field
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Error returns the error message
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + " " + e.Reason
}

// Unwrap makes errors.Is(err, ErrInvalidInput) hold
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
