package domain

import "errors"

var (
	// ErrValidation marks malformed input, resolved before any storage access.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized marks an actor attempting a transition it does not own.
	ErrUnauthorized = errors.New("actor not permitted")

	// ErrInvalidState marks a conflict: the entity moved on since the caller
	// last observed it. The recovery is to re-fetch and re-present legal actions.
	ErrInvalidState = errors.New("invalid state for operation")

	ErrNotFound = errors.New("not found")
)
