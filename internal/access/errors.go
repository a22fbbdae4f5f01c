package access

import "errors"

var (
	// ErrInvalidPassword is returned when a folder password does not match its stored hash.
	ErrInvalidPassword = errors.New("invalid folder password")
	// ErrTokenExpiredOrMissing is returned by the gate when a protected folder is accessed
	// without a valid token.
	ErrTokenExpiredOrMissing = errors.New("folder token expired or missing")
	// ErrMissingPepper is returned when the service is created without a token pepper.
	ErrMissingPepper = errors.New("token pepper is required")
)
