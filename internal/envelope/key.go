package envelope

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/idelchi/cloak/internal/encryption"
)

// ContentKey is the per-file key that encrypts content.
// It lives only in memory; call Zero once it is no longer needed.
type ContentKey [encryption.KeySize]byte

// NewContentKey returns a fresh random key.
func NewContentKey() (ContentKey, error) {
	var key ContentKey
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return ContentKey{}, fmt.Errorf("generating content key: %w", err)
	}

	return key, nil
}

// Zero wipes the key in place.
func (k *ContentKey) Zero() {
	clear(k[:])
}

// String never prints key material.
func (k ContentKey) String() string {
	return "ContentKey(redacted)"
}

// GoString never prints key material.
func (k ContentKey) GoString() string {
	return k.String()
}
