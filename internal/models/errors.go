package models

import "errors"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrNoteNotFound  = errors.New("note not found")
	ErrUsernameTaken = errors.New("username already exists")
	ErrInvalidRole   = errors.New("invalid role")

	ErrInvalidUsername = errors.New("invalid username")

	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")

	// ErrBadCredentials is returned for both unknown identifiers and wrong secrets.
	ErrBadCredentials = errors.New("bad credentials")

	ErrMalformedToken   = errors.New("malformed token")
	ErrExpiredToken     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrWeakSigningKey   = errors.New("signing key must be at least 32 bytes")

	ErrUnauthenticated = errors.New("unauthenticated")
	ErrAccessDenied    = errors.New("access denied")
)
