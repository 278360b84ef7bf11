package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates the request was rejected before any mutation.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState indicates a transition attempted from a state that
	// does not permit it. The document is left unchanged.
	ErrInvalidState = errors.New("invalid state transition")
)
