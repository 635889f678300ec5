package shared

import "errors"

// Sentinel errors shared across modules. Handlers map these onto the HTTP
// error taxonomy in platform/httpx.
var (
	// ErrInvalidInput indicates a missing or malformed required field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict indicates a uniqueness or referential-integrity violation.
	ErrConflict = errors.New("conflict")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure. The same error covers
	// unknown accounts and wrong passwords so callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates a missing, invalid or expired token.
	ErrUnauthenticated = errors.New("unauthorized")
	// ErrForbidden indicates an authenticated caller lacking a required
	// role or permission.
	ErrForbidden = errors.New("forbidden")
)
