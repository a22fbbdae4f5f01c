package envelope

import (
	"fmt"

	"github.com/idelchi/cloak/internal/kdf"
)

// Mode is the storage mode chosen at upload.
type Mode string

const (
	// ModeSecure stores a FileBlob plus a password-wrapped KeyBlob and Salt.
	ModeSecure Mode = "secure"
	// ModePlain stores the payload unencrypted, at the user's explicit request.
	ModePlain Mode = "plain"
)

// ParseMode parses a stored mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSecure, ModePlain:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Sealed is the persisted state of one file.
type Sealed struct {
	Mode Mode
	// FileBlob is IV ‖ tag ‖ ciphertext in secure mode and the raw payload in plain mode.
	FileBlob []byte
	// KeyBlob and Salt are empty in plain mode.
	KeyBlob []byte
	Salt    kdf.Salt
}

// Protected reports whether reading the file requires a password.
func (s *Sealed) Protected() bool {
	return s.Mode == ModeSecure
}
