package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable indicates the share server could not be reached.
	ErrUnavailable = errors.New("share server unavailable")

	// ErrTimeout indicates a request exceeded the configured timeout.
	ErrTimeout = errors.New("share server request timed out")

	// ErrNotFound indicates the requested course, section or routine does not exist.
	ErrNotFound = errors.New("not found on share server")

	// ErrForbidden indicates the caller's session may not update the routine.
	ErrForbidden = errors.New("session not allowed to update routine")

	// ErrRetryExhausted indicates all retry attempts have been exhausted.
	ErrRetryExhausted = errors.New("share server retry attempts exhausted")
)

// statusError carries a non-2xx reply that was not mapped to a sentinel.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("share server returned status %d", e.Code)
	}
	return fmt.Sprintf("share server returned status %d: %s", e.Code, e.Body)
}

// retryable reports whether another attempt may succeed. Client errors are final.
func (e *statusError) retryable() bool {
	return e.Code >= 500 || e.Code == 429
}
