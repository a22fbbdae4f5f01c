package access

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"
)

const (
	// DefaultTTL is how long an issued token stays valid.
	DefaultTTL = 2 * time.Hour
	// TokenBytes is the amount of randomness in a token.
	TokenBytes = 32

	digestInfo = "cloak/access-token"
)

// Token is an issued folder access token. Value is shown to the holder once and never stored.
type Token struct {
	Value     string
	FolderID  string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenRecord is the persisted form of a token.
type TokenRecord struct {
	Digest    string
	FolderID  string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenStore persists token records. Records are created once and never updated.
type TokenStore interface {
	CreateToken(ctx context.Context, rec TokenRecord) error
	// FindToken returns the record for a digest, or an error if there is none.
	FindToken(ctx context.Context, digest string) (TokenRecord, error)
}

// Folder is the gate's view of a folder.
type Folder struct {
	ID string
	// PasswordHash is the folder's Argon2id hash in PHC form, empty when unprotected.
	PasswordHash string
}

// Protected reports whether the folder requires a token.
func (f Folder) Protected() bool {
	return f.PasswordHash != ""
}

func newTokenValue() (string, error) {
	raw := make([]byte, TokenBytes)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func deriveDigestKey(pepper []byte) ([]byte, error) {
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, pepper, nil, []byte(digestInfo)), key); err != nil {
		return nil, fmt.Errorf("deriving token digest key: %w", err)
	}

	return key, nil
}

func digest(key []byte, token string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(token))

	return hex.EncodeToString(mac.Sum(nil))
}
