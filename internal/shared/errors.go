package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates a confirmation or reset token that failed
	// signature verification, expired, or could not be parsed.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrDuplicateEmail indicates the users.email unique constraint fired.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateUsername indicates the users.username unique constraint fired.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
