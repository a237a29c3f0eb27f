package service

import "errors"

var (
	// ErrInvalidCredentials is returned on login with an unknown email or a
	// wrong password. Both cases produce the same error on purpose.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned when a bearer token is missing, malformed,
	// expired or revoked.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrForbidden is returned when an authenticated user tries to mutate a
	// resource they do not own.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateFavorite is returned when a user favorites a recipe they
	// already favorited.
	ErrDuplicateFavorite = errors.New("recipe already in favorites")
)

// FieldErrors maps a request field to its validation messages.
type FieldErrors map[string][]string

// Add appends a message for a field.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// ValidationError carries per-field validation messages. All violated
// constraints for a request are collected before it is returned.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	fields := FieldErrors{}
	fields.Add(field, message)
	return &ValidationError{Fields: fields}
}
