// Package common defines shared constants and sentinel errors used across
// client and server layers of LockTalk. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors.
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrWrongIssuer   = errors.New("wrong issuer")
	ErrDuplicateName = errors.New("username already exists")
	ErrBadPassword   = errors.New("password does not match")
	ErrInactiveUser  = errors.New("account is inactive")
	ErrMissingFields = errors.New("missing user information")

	// Chat relay errors.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrSessionClosed    = errors.New("session closed")
	ErrMalformedFrame   = errors.New("malformed frame")
)
