package domain

import "errors"

// Error taxonomy shared by the live channel and the HTTP API.
var (
	ErrUnauthenticated   = errors.New("not authorized")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrPersistence       = errors.New("persistence failure")
	ErrVerification      = errors.New("invalid token")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrRateLimited       = errors.New("rate limit exceeded")
)
