package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a document is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a write violates the username or email unique index
	ErrDuplicateKey = errors.New("user with this username or email already exists")
)
