package envelope

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/idelchi/cloak/internal/audit"
	"github.com/idelchi/cloak/internal/encryption"
	"github.com/idelchi/cloak/internal/kdf"
)

// Manager performs envelope encryption. It holds no key material between calls.
type Manager struct {
	params   kdf.Params
	recorder audit.Recorder
	logger   logrus.FieldLogger
	now      func() time.Time

	trail *audit.Trail
}

// Option configures a Manager.
type Option func(*Manager)

// WithParams sets the Argon2id cost used to derive wrapping keys.
func WithParams(p kdf.Params) Option {
	return func(m *Manager) { m.params = p }
}

// WithRecorder sets where key-wrap attempts are recorded.
func WithRecorder(r audit.Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithLogger sets the logger. A nil logger is replaced by a new logrus logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides the clock used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a Manager. Without options it uses kdf.DefaultParams and discards audit entries.
func New(opts ...Option) (*Manager, error) {
	m := &Manager{
		params:   kdf.DefaultParams(),
		recorder: audit.Discard{},
		logger:   logrus.New(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.logger = audit.LoggerOrDefault(m.logger)

	if m.recorder == nil {
		m.recorder = audit.Discard{}
	}

	if m.now == nil {
		m.now = time.Now
	}

	if err := m.params.Validate(); err != nil {
		return nil, err
	}

	m.trail = audit.NewTrail(m.recorder, m.logger, m.now)

	return m, nil
}

// EncryptForStorage encrypts payload under a fresh ContentKey.
// The caller wraps the returned key and then zeroes it.
func (m *Manager) EncryptForStorage(payload []byte) ([]byte, ContentKey, error) {
	key, err := NewContentKey()
	if err != nil {
		return nil, ContentKey{}, err
	}

	blob, err := encryption.SealBlob(key[:], payload)
	if err != nil {
		key.Zero()

		return nil, ContentKey{}, fmt.Errorf("encrypting payload: %w", err)
	}

	return blob, key, nil
}

// DecryptFromStorage opens a FileBlob with an unwrapped ContentKey.
func (m *Manager) DecryptFromStorage(fileBlob []byte, key ContentKey) ([]byte, error) {
	return encryption.OpenBlob(key[:], fileBlob)
}

// WrapKey encrypts the ContentKey under a key derived from password and a fresh Salt.
func (m *Manager) WrapKey(ctx context.Context, key ContentKey, password string, src audit.Source) ([]byte, kdf.Salt, error) {
	keyBlob, salt, err := m.wrap(key, password)

	m.trail.Record(ctx, audit.ActionWrapKey, err == nil, src)

	if err != nil {
		return nil, kdf.Salt{}, err
	}

	return keyBlob, salt, nil
}

func (m *Manager) wrap(key ContentKey, password string) ([]byte, kdf.Salt, error) {
	salt, err := kdf.NewSalt()
	if err != nil {
		return nil, kdf.Salt{}, err
	}

	kek := m.params.Derive(password, salt)
	defer clear(kek)

	keyBlob, err := encryption.SealBlob(kek, key[:])
	if err != nil {
		return nil, kdf.Salt{}, fmt.Errorf("wrapping content key: %w", err)
	}

	return keyBlob, salt, nil
}

// UnwrapKey recovers a ContentKey from its KeyBlob.
//
// A wrong password and a tampered blob are indistinguishable: both return ErrInvalidPassword,
// which also matches encryption.ErrAuthenticationFailed. A KeyBlob shorter than the blob floor
// returns encryption.ErrMalformedBlob without an audit entry.
func (m *Manager) UnwrapKey(
	ctx context.Context,
	keyBlob []byte,
	password string,
	salt kdf.Salt,
	src audit.Source,
) (ContentKey, error) {
	iv, tag, ciphertext, err := encryption.DecodeBlob(keyBlob)
	if err != nil {
		m.logger.WithField("resource", src.Resource).Warn("refusing malformed key blob")

		return ContentKey{}, err
	}

	key, err := m.unwrap(ciphertext, iv, tag, password, salt)

	m.trail.Record(ctx, audit.ActionUnwrapKey, err == nil, src)

	if err != nil {
		return ContentKey{}, err
	}

	return key, nil
}

func (m *Manager) unwrap(ciphertext, iv, tag []byte, password string, salt kdf.Salt) (ContentKey, error) {
	kek := m.params.Derive(password, salt)
	defer clear(kek)

	raw, err := encryption.Decrypt(kek, ciphertext, iv, tag)
	if errors.Is(err, encryption.ErrAuthenticationFailed) {
		return ContentKey{}, fmt.Errorf("%w: %w", ErrInvalidPassword, err)
	}

	if err != nil {
		return ContentKey{}, fmt.Errorf("unwrapping content key: %w", err)
	}

	defer clear(raw)

	if len(raw) != encryption.KeySize {
		return ContentKey{}, fmt.Errorf("%w: %w", ErrInvalidPassword, encryption.ErrAuthenticationFailed)
	}

	var key ContentKey

	copy(key[:], raw)

	return key, nil
}

// Seal produces the persisted state for one upload.
// In plain mode the payload is stored as-is and the password is ignored.
func (m *Manager) Seal(ctx context.Context, payload []byte, password string, mode Mode, src audit.Source) (*Sealed, error) {
	switch mode {
	case ModePlain:
		return &Sealed{Mode: ModePlain, FileBlob: append([]byte(nil), payload...)}, nil
	case ModeSecure:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	fileBlob, key, err := m.EncryptForStorage(payload)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	keyBlob, salt, err := m.WrapKey(ctx, key, password, src)
	if err != nil {
		return nil, err
	}

	return &Sealed{
		Mode:     ModeSecure,
		FileBlob: fileBlob,
		KeyBlob:  keyBlob,
		Salt:     salt,
	}, nil
}

// Open returns the plaintext of a persisted file. Plain records are returned without any
// key handling; secure records are unwrapped with password and decrypted.
func (m *Manager) Open(ctx context.Context, sealed *Sealed, password string, src audit.Source) ([]byte, error) {
	switch sealed.Mode {
	case ModePlain:
		return append([]byte(nil), sealed.FileBlob...), nil
	case ModeSecure:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, sealed.Mode)
	}

	key, err := m.UnwrapKey(ctx, sealed.KeyBlob, password, sealed.Salt, src)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	return m.DecryptFromStorage(sealed.FileBlob, key)
}
