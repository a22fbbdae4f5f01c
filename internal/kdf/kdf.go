package kdf

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the derived key length, sized for AES-256.
	KeySize = 32
	// SaltSize is the length of a key-wrapping salt.
	SaltSize = 32
)

// Salt is a per-wrap random value persisted next to the wrapped key.
type Salt [SaltSize]byte

// NewSalt returns a fresh random salt.
func NewSalt() (Salt, error) {
	var salt Salt
	if _, err := io.ReadFull(rand.Reader, salt[:]); err != nil {
		return Salt{}, fmt.Errorf("generating salt: %w", err)
	}

	return salt, nil
}

// SaltFromBytes copies a stored salt, rejecting any other length.
func SaltFromBytes(b []byte) (Salt, error) {
	var salt Salt
	if len(b) != SaltSize {
		return salt, fmt.Errorf("salt is %d bytes, want %d", len(b), SaltSize)
	}

	copy(salt[:], b)

	return salt, nil
}

// Params are the Argon2id cost parameters.
type Params struct {
	// Time is the number of passes over memory.
	Time uint32 `mapstructure:"time"`
	// MemoryKiB is the memory cost in KiB.
	MemoryKiB uint32 `mapstructure:"memory"`
	// Threads is the degree of parallelism.
	Threads uint8 `mapstructure:"threads"`
}

// DefaultParams returns t=3, m=64 MiB, p=4.
func DefaultParams() Params {
	return Params{
		Time:      3,
		MemoryKiB: 64 * 1024,
		Threads:   4,
	}
}

// Validate reports whether argon2 can run with p.
func (p Params) Validate() error {
	switch {
	case p.Time == 0:
		return fmt.Errorf("%w: time must be at least 1", ErrInvalidParams)
	case p.Threads == 0:
		return fmt.Errorf("%w: threads must be at least 1", ErrInvalidParams)
	case p.MemoryKiB < 8*uint32(p.Threads):
		return fmt.Errorf("%w: memory must be at least 8 KiB per thread", ErrInvalidParams)
	}

	return nil
}

// Derive returns the 256-bit key for password and salt. Same inputs give the same key.
func (p Params) Derive(password string, salt Salt) []byte {
	return argon2.IDKey([]byte(password), salt[:], p.Time, p.MemoryKiB, p.Threads, KeySize)
}
