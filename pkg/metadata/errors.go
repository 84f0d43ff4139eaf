package metadata

import "errors"

var (
	// ErrAccountNotFound is returned when the requested account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrFileNotFound is returned when the requested file record does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrAccountExists is returned when linking a credential that is already stored.
	ErrAccountExists = errors.New("account already linked")

	// ErrDatabaseError is returned when a database operation fails.
	ErrDatabaseError = errors.New("database error")
)
