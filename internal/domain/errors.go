package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrRequestNotFound      = errors.New("request_not_found")
	ErrMatchNotFound        = errors.New("match_not_found")
	ErrWebhookNotFound      = errors.New("webhook_not_found")
	ErrConflict             = errors.New("conflict")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrReciprocityViolation = errors.New("reciprocity_violation")
	ErrInvalidTransition    = errors.New("invalid_transition")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
