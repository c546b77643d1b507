package sharesync

import "errors"

var (
	// ErrEmptyRoutine is returned when sharing a routine with no sections.
	ErrEmptyRoutine = errors.New("cannot share an empty routine")

	// ErrShareNotFound is returned when a short code is unknown, expired or
	// resolves to no sections.
	ErrShareNotFound = errors.New("shared routine not found")

	ErrIllegalTransition = errors.New("illegal sync transition")

	ErrClosed = errors.New("sync machine closed")
)
