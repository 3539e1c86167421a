package auth

import "errors"

// Token errors returned by Codec.Verify. Callers outside the package should
// only ever see them wrapped in ErrInvalidToken.
var (
	ErrMalformed    = errors.New("token malformed")
	ErrBadSignature = errors.New("token signature invalid")
	ErrExpired      = errors.New("token expired")
)

// Guard decisions.
var (
	ErrMissingHeader = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid token")
	ErrForbidden     = errors.New("forbidden")
)

// ErrInvalidCredentials covers both an unknown email and a wrong password so
// that login responses do not reveal which accounts exist.
var ErrInvalidCredentials = errors.New("invalid credentials")
