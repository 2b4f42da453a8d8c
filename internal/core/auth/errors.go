package auth

import "errors"

// Authentication errors. Both request failures map to UNAUTHENTICATED.
var (
	ErrMissingToken  = errors.New("admin token required in x-admin-token metadata")
	ErrInvalidToken  = errors.New("invalid admin token")
	ErrTokenTooShort = errors.New("admin token too short")
)
