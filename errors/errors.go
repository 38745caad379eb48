package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// ErrAuthentication wraps every token failure so callers can test a single sentinel.
	ErrAuthentication = fmt.Errorf("authentication failed")
	ErrInvalidToken   = fmt.Errorf("invalid token")
	ErrExpiredToken   = fmt.Errorf("token expired")
	ErrMissingClaim   = fmt.Errorf("missing required claim")

	ErrValidation       = fmt.Errorf("invalid event payload")
	ErrUnknownEvent     = fmt.Errorf("unknown event")
	ErrFileTypeMismatch = fmt.Errorf("declared file type does not match content")
	ErrPersistence      = fmt.Errorf("persistence failure")
	ErrSlowConsumer     = fmt.Errorf("connection buffer full")
	ErrConnectionClosed = fmt.Errorf("connection closed")
	ErrEmptyWords       = fmt.Errorf("no words have been found")

	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
)
