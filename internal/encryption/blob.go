package encryption

import (
	"encoding/base64"
	"fmt"
)

// EncodeBlob concatenates iv, tag and ciphertext in the frozen storage order.
func EncodeBlob(iv, tag, ciphertext []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w: iv is %d bytes, want %d", ErrMalformedBlob, len(iv), IVSize)
	}

	if len(tag) != TagSize {
		return nil, fmt.Errorf("%w: tag is %d bytes, want %d", ErrMalformedBlob, len(tag), TagSize)
	}

	return Sealed{IV: iv, Tag: tag, Ciphertext: ciphertext}.Blob(), nil
}

// DecodeBlob splits a storage blob into its fields.
// The returned slices alias blob.
func DecodeBlob(blob []byte) (iv, tag, ciphertext []byte, err error) {
	if len(blob) < MinBlobSize {
		return nil, nil, nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedBlob, len(blob), MinBlobSize)
	}

	return blob[:IVSize], blob[IVSize:MinBlobSize], blob[MinBlobSize:], nil
}

// EncodeText renders a blob for JSON or text fields.
func EncodeText(blob []byte) string {
	return base64.StdEncoding.EncodeToString(blob)
}

// DecodeText parses a blob carried in a JSON or text field.
func DecodeText(text string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBlob, err)
	}

	return blob, nil
}
