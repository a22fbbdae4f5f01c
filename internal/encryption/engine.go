package encryption

import (
	"fmt"

	"github.com/tink-crypto/tink-go/v2/aead"
	"github.com/tink-crypto/tink-go/v2/tink"
)

const (
	// KeySize is the AES-256 key size in bytes.
	KeySize = 32
	// IVSize is the GCM nonce size in bytes.
	IVSize = 12
	// TagSize is the GCM authentication tag size in bytes.
	TagSize = 16
	// MinBlobSize is the smallest well-formed storage blob (empty ciphertext).
	MinBlobSize = IVSize + TagSize
)

// AssociatedData is bound into every encryption and decryption, for file content and key wrapping alike.
// Changing it invalidates every existing blob.
const AssociatedData = "cloak/v1"

// Sealed is the output of a single encryption call.
type Sealed struct {
	IV         []byte
	Tag        []byte
	Ciphertext []byte
}

// Blob returns the storage layout IV ‖ Tag ‖ Ciphertext.
func (s Sealed) Blob() []byte {
	blob := make([]byte, 0, len(s.IV)+len(s.Tag)+len(s.Ciphertext))
	blob = append(blob, s.IV...)
	blob = append(blob, s.Tag...)

	return append(blob, s.Ciphertext...)
}

// Cipher is an AES-256-GCM primitive bound to one key.
type Cipher struct {
	primitive tink.AEAD
}

// NewCipher creates a Cipher for the given 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeySize, len(key), KeySize)
	}

	handle, err := newAEADKeyHandle(key)
	if err != nil {
		return nil, err
	}

	primitive, err := aead.New(handle)
	if err != nil {
		return nil, fmt.Errorf("creating AEAD: %w", err)
	}

	return &Cipher{primitive: primitive}, nil
}

// Encrypt seals plaintext under a fresh random IV.
func (c *Cipher) Encrypt(plaintext []byte) (Sealed, error) {
	// Tink lays out the output as IV ‖ ciphertext ‖ tag.
	out, err := c.primitive.Encrypt(plaintext, []byte(AssociatedData))
	if err != nil {
		return Sealed{}, fmt.Errorf("encrypting: %w", err)
	}

	if len(out) < MinBlobSize {
		return Sealed{}, fmt.Errorf("encrypting: unexpected output length %d", len(out))
	}

	tagStart := len(out) - TagSize

	return Sealed{
		IV:         out[:IVSize],
		Tag:        out[tagStart:],
		Ciphertext: out[IVSize:tagStart],
	}, nil
}

// Decrypt opens ciphertext. Any mismatch yields ErrAuthenticationFailed and no plaintext.
func (c *Cipher) Decrypt(ciphertext, iv, tag []byte) ([]byte, error) {
	if len(iv) != IVSize || len(tag) != TagSize {
		return nil, ErrAuthenticationFailed
	}

	in := make([]byte, 0, IVSize+len(ciphertext)+TagSize)
	in = append(in, iv...)
	in = append(in, ciphertext...)
	in = append(in, tag...)

	plaintext, err := c.primitive.Decrypt(in, []byte(AssociatedData))
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	return plaintext, nil
}

// Encrypt seals plaintext under key with a fresh IV.
func Encrypt(key, plaintext []byte) (Sealed, error) {
	c, err := NewCipher(key)
	if err != nil {
		return Sealed{}, err
	}

	return c.Encrypt(plaintext)
}

// Decrypt opens a sealed payload under key.
func Decrypt(key, ciphertext, iv, tag []byte) ([]byte, error) {
	c, err := NewCipher(key)
	if err != nil {
		return nil, err
	}

	return c.Decrypt(ciphertext, iv, tag)
}

// SealBlob encrypts plaintext and returns the encoded storage blob.
func SealBlob(key, plaintext []byte) ([]byte, error) {
	sealed, err := Encrypt(key, plaintext)
	if err != nil {
		return nil, err
	}

	return sealed.Blob(), nil
}

// OpenBlob decodes a storage blob and decrypts it.
func OpenBlob(key, blob []byte) ([]byte, error) {
	iv, tag, ciphertext, err := DecodeBlob(blob)
	if err != nil {
		return nil, err
	}

	return Decrypt(key, ciphertext, iv, tag)
}
