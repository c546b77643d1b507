package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique key such as a short code is
	// already taken.
	ErrConflict = errors.New("conflict")
)
