package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict signals a unique constraint violation.
	ErrConflict = errors.New("repository: conflict")
)
