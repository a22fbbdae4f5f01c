package envelope

import "errors"

var (
	// ErrInvalidPassword is returned when a KeyBlob cannot be opened. It does not
	// distinguish a wrong password from a corrupted blob.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrPasswordCountMismatch is returned when a batch does not carry exactly one password per file.
	ErrPasswordCountMismatch = errors.New("password count does not match file count")
	// ErrUnknownMode is returned for a storage mode other than secure or plain.
	ErrUnknownMode = errors.New("unknown storage mode")
)
