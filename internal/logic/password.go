package logic

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password accepted when sealing a file in secure mode
// or protecting a folder.
const MinPasswordLength = 4

// ErrWeakPassword is returned for passwords shorter than MinPasswordLength.
var ErrWeakPassword = errors.New("password too short")

func checkPassword(label, password string) error {
	if n := utf8.RuneCountInString(password); n < MinPasswordLength {
		return fmt.Errorf("%w: %s has %d characters, need at least %d", ErrWeakPassword, label, n, MinPasswordLength)
	}

	return nil
}
