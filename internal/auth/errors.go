package auth

import "errors"

var (
	// ErrInvalidToken indicates the session token failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")

	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")
	ErrUnauthorized  = errors.New("auth: unauthorized")

	// ErrTenantMismatch marks a row that slipped past the scope filter but was
	// caught by the guard. It signals a filter/guard disagreement and is logged
	// distinctly; callers surface it as a generic denial.
	ErrTenantMismatch = errors.New("auth: tenant mismatch")
)
