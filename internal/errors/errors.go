package errors

import "errors"

// Centralized sentinel errors for the application. Services return these
// without knowing about HTTP; the API layer checks them with errors.Is()
// and maps them to status codes in one place.

var (
	// ErrNotFound signifies that a requested resource could not be located.
	// Mapped to 404 Not Found.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation signifies that client-provided input failed business
	// rule validation. Mapped to 400 Bad Request.
	ErrValidation = errors.New("validation failed")

	// ErrInternal signifies an unexpected server-side failure. Used to
	// avoid leaking implementation details. Mapped to 500.
	ErrInternal = errors.New("internal server error")
)
