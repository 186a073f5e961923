package document

import "errors"

var (
	// ErrNotFound covers unknown ids, unknown or rotated tokens, and deleted
	// documents. Anonymous callers must not be able to tell these apart.
	ErrNotFound = errors.New("document: not found")

	// ErrAlreadyResolved is returned when a transition races or conflicts with
	// a terminal state already reached.
	ErrAlreadyResolved = errors.New("document: already resolved")

	// ErrExpired is returned when the response deadline has passed.
	ErrExpired = errors.New("document: expired")

	ErrInvalidInput = errors.New("document: invalid input")

	// ErrNotPending is returned for staff transitions that require the
	// document to still be editable or awaiting a response.
	ErrNotPending = errors.New("document: status does not permit this transition")
)
