package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidRecipient = errors.New("recipient_id must not be empty")
	ErrInvalidTitle     = errors.New("title must be between 1 and 256 characters")
	ErrInvalidBody      = errors.New("body must be between 1 and 4096 characters")
	ErrRunInProgress    = errors.New("a delivery run is already in progress")
)
