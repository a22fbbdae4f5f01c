package encryption

import "errors"

var (
	// ErrMalformedBlob is returned when a storage blob is shorter than MinBlobSize
	// or its fields have the wrong width.
	ErrMalformedBlob = errors.New("malformed blob")
	// ErrAuthenticationFailed is returned when the authentication tag does not verify.
	// It covers both a wrong key and tampered data.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrInvalidKeySize is returned when a key is not KeySize bytes long.
	ErrInvalidKeySize = errors.New("invalid key size")
)
