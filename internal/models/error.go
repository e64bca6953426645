package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Challenge session state errors
	ErrSessionExpired  = errors.New("challenge session has expired")
	ErrSessionSpent    = errors.New("challenge session already used")
	ErrSessionNotReady = errors.New("challenge session not verified")
	ErrSessionCooldown = errors.New("challenge session is regenerating")

	// Verification token errors
	ErrTokenInvalid = errors.New("verification token is invalid")
	ErrTokenExpired = errors.New("verification token has expired")
)
