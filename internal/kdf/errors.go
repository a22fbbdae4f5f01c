package kdf

import "errors"

var (
	// ErrMalformedHash is returned when an encoded password hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrInvalidParams is returned for Argon2id parameters that cannot be used.
	ErrInvalidParams = errors.New("invalid argon2id parameters")
)
