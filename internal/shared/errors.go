package shared

import "errors"

// Sentinels shared across the console's modules. Repositories translate
// pgx errors into these; handlers translate them to HTTP responses.
var (
	// ErrNotFound covers missing rows and dead sessions alike.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials deliberately stands in for unknown email,
	// wrong password and disabled account, so login responses do not
	// reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// CSRF verification failures, kept distinct so the middleware log can
// tell an absent token from a forged one.
var (
	ErrCSRFTokenMissing  = errors.New("csrf token missing")
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
