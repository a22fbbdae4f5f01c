package access

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/idelchi/cloak/internal/audit"
	"github.com/idelchi/cloak/internal/kdf"
)

// Service issues and verifies folder access tokens.
type Service struct {
	store     TokenStore
	recorder  audit.Recorder
	logger    logrus.FieldLogger
	now       func() time.Time
	ttl       time.Duration
	digestKey []byte

	trail *audit.Trail
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets where unlock and verify attempts are recorded.
func WithRecorder(r audit.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the logger. A nil logger is replaced by a new logrus logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the clock used for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// New creates a Service. The pepper keys the digests under which tokens are stored.
func New(store TokenStore, pepper []byte, opts ...Option) (*Service, error) {
	if len(pepper) == 0 {
		return nil, ErrMissingPepper
	}

	key, err := deriveDigestKey(pepper)
	if err != nil {
		return nil, err
	}

	s := &Service{
		store:     store,
		recorder:  audit.Discard{},
		logger:    logrus.New(),
		now:       time.Now,
		ttl:       DefaultTTL,
		digestKey: key,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = audit.LoggerOrDefault(s.logger)

	if s.recorder == nil {
		s.recorder = audit.Discard{}
	}

	if s.now == nil {
		s.now = time.Now
	}

	s.trail = audit.NewTrail(s.recorder, s.logger, s.now)

	return s, nil
}

// Issue verifies password against the folder's stored hash and mints a token for userID.
func (s *Service) Issue(
	ctx context.Context,
	folderID, userID, password, storedHash string,
	src audit.Source,
) (Token, error) {
	src = withDefaults(src, folderID, userID)

	token, err := s.issue(ctx, folderID, userID, password, storedHash)

	s.trail.Record(ctx, audit.ActionUnlockFolder, err == nil, src)

	if err != nil {
		return Token{}, err
	}

	return token, nil
}

func (s *Service) issue(ctx context.Context, folderID, userID, password, storedHash string) (Token, error) {
	ok, err := kdf.VerifyPassword(password, storedHash)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %w", ErrInvalidPassword, err)
	}

	if !ok {
		return Token{}, ErrInvalidPassword
	}

	value, err := newTokenValue()
	if err != nil {
		return Token{}, err
	}

	issued := s.now().UTC()
	token := Token{
		Value:     value,
		FolderID:  folderID,
		UserID:    userID,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(s.ttl),
	}

	rec := TokenRecord{
		Digest:    digest(s.digestKey, value),
		FolderID:  folderID,
		UserID:    userID,
		IssuedAt:  token.IssuedAt,
		ExpiresAt: token.ExpiresAt,
	}

	if err := s.store.CreateToken(ctx, rec); err != nil {
		return Token{}, fmt.Errorf("storing token: %w", err)
	}

	return token, nil
}

// Verify reports whether token grants userID access to folderID right now.
// Lookup failures deny.
func (s *Service) Verify(ctx context.Context, token, folderID, userID string, src audit.Source) bool {
	src = withDefaults(src, folderID, userID)

	granted := s.verify(ctx, token, folderID, userID)

	s.trail.Record(ctx, audit.ActionVerifyToken, granted, src)

	return granted
}

func (s *Service) verify(ctx context.Context, token, folderID, userID string) bool {
	if token == "" {
		return false
	}

	rec, err := s.store.FindToken(ctx, digest(s.digestKey, token))
	if err != nil {
		s.logger.WithField("folder", folderID).WithError(err).Debug("token lookup failed")

		return false
	}

	if rec.FolderID != folderID || rec.UserID != userID {
		return false
	}

	return s.now().Before(rec.ExpiresAt)
}

// Authorize is the gate every read of folder content goes through.
// Unprotected folders pass; protected folders require a token Verify accepts.
func (s *Service) Authorize(ctx context.Context, folder Folder, token, userID string, src audit.Source) error {
	if !folder.Protected() {
		return nil
	}

	if !s.Verify(ctx, token, folder.ID, userID, src) {
		return ErrTokenExpiredOrMissing
	}

	return nil
}

func withDefaults(src audit.Source, folderID, userID string) audit.Source {
	if src.Actor == "" {
		src.Actor = userID
	}

	if src.Resource == "" {
		src.Resource = folderID
	}

	return src
}
