package apiclient

import (
	"errors"
	"fmt"
)

// ErrUnavailable reports that the backend could not be reached or answered
// with something that is not a valid envelope.
var ErrUnavailable = errors.New("backend unavailable")

// BackendError is a logical failure reported by the backend with success=false.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error (status %d)", e.Status)
	}
	return fmt.Sprintf("backend error (status %d): %s", e.Status, e.Message)
}

// Message extracts the backend-supplied message from err, if any.
func Message(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Message
	}
	return ""
}

// IsNotFound reports whether the backend rejected the call with 404.
func IsNotFound(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Status == 404
}

func unavailable(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %v", op, ErrUnavailable, err)
}
