package envelope_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/idelchi/cloak/internal/audit"
	"github.com/idelchi/cloak/internal/encryption"
	"github.com/idelchi/cloak/internal/envelope"
	"github.com/idelchi/cloak/internal/kdf"
)

var fast = kdf.Params{Time: 1, MemoryKiB: 64, Threads: 1} //nolint:gochecknoglobals

type sliceRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (r *sliceRecorder) Record(_ context.Context, e audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.entries = append(r.entries, e)

	return nil
}

func (r *sliceRecorder) all() []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]audit.Entry(nil), r.entries...)
}

func newManager(t *testing.T, rec audit.Recorder) *envelope.Manager {
	t.Helper()

	m, err := envelope.New(envelope.WithParams(fast), envelope.WithRecorder(rec))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	return m
}

func TestEndToEnd(t *testing.T) {
	t.Parallel()

	rec := &sliceRecorder{}
	m := newManager(t, rec)
	ctx := context.Background()
	src := audit.Source{Actor: "user-1", Resource: "file-1"}

	fileBlob, key, err := m.EncryptForStorage([]byte("hello-world"))
	if err != nil {
		t.Fatalf("EncryptForStorage error: %v", err)
	}

	if len(fileBlob) != encryption.MinBlobSize+len("hello-world") {
		t.Errorf("file blob is %d bytes, want %d", len(fileBlob), encryption.MinBlobSize+len("hello-world"))
	}

	keyBlob, salt, err := m.WrapKey(ctx, key, "correct-horse", src)
	if err != nil {
		t.Fatalf("WrapKey error: %v", err)
	}

	key.Zero()

	if key != (envelope.ContentKey{}) {
		t.Fatal("Zero left key material behind")
	}

	unwrapped, err := m.UnwrapKey(ctx, keyBlob, "correct-horse", salt, src)
	if err != nil {
		t.Fatalf("UnwrapKey error: %v", err)
	}

	plaintext, err := m.DecryptFromStorage(fileBlob, unwrapped)
	if err != nil {
		t.Fatalf("DecryptFromStorage error: %v", err)
	}

	if string(plaintext) != "hello-world" {
		t.Errorf("plaintext = %q, want hello-world", plaintext)
	}

	_, err = m.UnwrapKey(ctx, keyBlob, "wrong", salt, src)
	if !errors.Is(err, envelope.ErrInvalidPassword) {
		t.Errorf("UnwrapKey(wrong) error = %v, want ErrInvalidPassword", err)
	}

	if !errors.Is(err, encryption.ErrAuthenticationFailed) {
		t.Errorf("UnwrapKey(wrong) error = %v, want to match ErrAuthenticationFailed", err)
	}

	entries := rec.all()
	want := []struct {
		action  audit.Action
		success bool
	}{
		{audit.ActionWrapKey, true},
		{audit.ActionUnwrapKey, true},
		{audit.ActionUnwrapKey, false},
	}

	if len(entries) != len(want) {
		t.Fatalf("recorded %d entries, want %d", len(entries), len(want))
	}

	for i, w := range want {
		if entries[i].Action != w.action || entries[i].Success != w.success {
			t.Errorf("entry %d = %s/%v, want %s/%v", i, entries[i].Action, entries[i].Success, w.action, w.success)
		}

		if entries[i].Actor != "user-1" {
			t.Errorf("entry %d actor = %q, want user-1", i, entries[i].Actor)
		}
	}
}

func TestWrapKeyFreshSalt(t *testing.T) {
	t.Parallel()

	m := newManager(t, nil)

	key, err := envelope.NewContentKey()
	if err != nil {
		t.Fatalf("NewContentKey error: %v", err)
	}

	blob1, salt1, err := m.WrapKey(context.Background(), key, "correct-horse", audit.Source{})
	if err != nil {
		t.Fatalf("WrapKey error: %v", err)
	}

	blob2, salt2, err := m.WrapKey(context.Background(), key, "correct-horse", audit.Source{})
	if err != nil {
		t.Fatalf("WrapKey error: %v", err)
	}

	if salt1 == salt2 {
		t.Error("two wraps share a salt")
	}

	if bytes.Equal(blob1, blob2) {
		t.Error("two wraps produced the same key blob")
	}
}

func TestUnwrapKeyTampered(t *testing.T) {
	t.Parallel()

	rec := &sliceRecorder{}
	m := newManager(t, rec)
	ctx := context.Background()

	key, err := envelope.NewContentKey()
	if err != nil {
		t.Fatalf("NewContentKey error: %v", err)
	}

	keyBlob, salt, err := m.WrapKey(ctx, key, "correct-horse", audit.Source{})
	if err != nil {
		t.Fatalf("WrapKey error: %v", err)
	}

	for _, i := range []int{0, encryption.IVSize, encryption.MinBlobSize, len(keyBlob) - 1} {
		tampered := append([]byte(nil), keyBlob...)
		tampered[i] ^= 0x01

		if _, err := m.UnwrapKey(ctx, tampered, "correct-horse", salt, audit.Source{}); !errors.Is(err, envelope.ErrInvalidPassword) {
			t.Errorf("byte %d: error = %v, want ErrInvalidPassword", i, err)
		}
	}

	otherSalt := salt
	otherSalt[0] ^= 0x01

	if _, err := m.UnwrapKey(ctx, keyBlob, "correct-horse", otherSalt, audit.Source{}); !errors.Is(err, envelope.ErrInvalidPassword) {
		t.Errorf("wrong salt: error = %v, want ErrInvalidPassword", err)
	}
}

func TestUnwrapKeyMalformed(t *testing.T) {
	t.Parallel()

	rec := &sliceRecorder{}
	m := newManager(t, rec)

	_, err := m.UnwrapKey(context.Background(), make([]byte, encryption.MinBlobSize-1), "pw", kdf.Salt{}, audit.Source{})
	if !errors.Is(err, encryption.ErrMalformedBlob) {
		t.Errorf("error = %v, want ErrMalformedBlob", err)
	}

	if errors.Is(err, envelope.ErrInvalidPassword) {
		t.Error("malformed blob reported as invalid password")
	}

	if n := len(rec.all()); n != 0 {
		t.Errorf("malformed blob recorded %d audit entries, want 0", n)
	}
}

func TestUnwrapKeyWrongLength(t *testing.T) {
	t.Parallel()

	m := newManager(t, nil)

	salt, err := kdf.NewSalt()
	if err != nil {
		t.Fatalf("NewSalt error: %v", err)
	}

	// A blob that authenticates under the right password but does not hold a 32-byte key.
	keyBlob, err := encryption.SealBlob(fast.Derive("correct-horse", salt), make([]byte, 16))
	if err != nil {
		t.Fatalf("SealBlob error: %v", err)
	}

	_, err = m.UnwrapKey(context.Background(), keyBlob, "correct-horse", salt, audit.Source{})
	if !errors.Is(err, envelope.ErrInvalidPassword) {
		t.Errorf("error = %v, want ErrInvalidPassword", err)
	}
}

func TestAuditFailureDoesNotMaskResult(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()

	m, err := envelope.New(
		envelope.WithParams(fast),
		envelope.WithRecorder(&sliceRecorder{err: errors.New("audit store down")}),
		envelope.WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	ctx := context.Background()

	sealed, err := m.Seal(ctx, []byte("hello-world"), "correct-horse", envelope.ModeSecure, audit.Source{})
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}

	plaintext, err := m.Open(ctx, sealed, "correct-horse", audit.Source{})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	if string(plaintext) != "hello-world" {
		t.Errorf("plaintext = %q, want hello-world", plaintext)
	}

	if _, err := m.Open(ctx, sealed, "wrong", audit.Source{}); !errors.Is(err, envelope.ErrInvalidPassword) {
		t.Errorf("Open(wrong) error = %v, want ErrInvalidPassword", err)
	}

	if n := len(hook.AllEntries()); n != 3 {
		t.Errorf("logged %d audit failures, want 3", n)
	}
}

func TestSealModes(t *testing.T) {
	t.Parallel()

	rec := &sliceRecorder{}
	m := newManager(t, rec)
	ctx := context.Background()

	plain, err := m.Seal(ctx, []byte("public"), "ignored", envelope.ModePlain, audit.Source{})
	if err != nil {
		t.Fatalf("Seal(plain) error: %v", err)
	}

	if plain.Protected() || plain.KeyBlob != nil || plain.Salt != (kdf.Salt{}) {
		t.Errorf("plain record carries key material: %+v", plain)
	}

	if string(plain.FileBlob) != "public" {
		t.Errorf("plain file blob = %q, want public", plain.FileBlob)
	}

	got, err := m.Open(ctx, plain, "", audit.Source{})
	if err != nil || string(got) != "public" {
		t.Errorf("Open(plain) = %q, %v", got, err)
	}

	if n := len(rec.all()); n != 0 {
		t.Errorf("plain mode recorded %d audit entries, want 0", n)
	}

	secure, err := m.Seal(ctx, []byte("private"), "correct-horse", envelope.ModeSecure, audit.Source{})
	if err != nil {
		t.Fatalf("Seal(secure) error: %v", err)
	}

	if !secure.Protected() || bytes.Contains(secure.FileBlob, []byte("private")) {
		t.Error("secure record is not encrypted")
	}

	if _, err := m.Seal(ctx, nil, "pw", envelope.Mode("zip"), audit.Source{}); !errors.Is(err, envelope.ErrUnknownMode) {
		t.Errorf("Seal(unknown) error = %v, want ErrUnknownMode", err)
	}
}

func TestSealBatch(t *testing.T) {
	t.Parallel()

	m := newManager(t, nil)
	ctx := context.Background()

	items := []envelope.BatchItem{
		{Name: "a.png", Payload: []byte("a"), Mode: envelope.ModeSecure},
		{Name: "b.png", Payload: []byte("b"), Mode: envelope.ModePlain},
		{Name: "c.png", Payload: []byte("c"), Mode: envelope.ModeSecure},
	}

	_, err := m.SealBatch(ctx, items, []string{"only-one"}, 2)
	if !errors.Is(err, envelope.ErrPasswordCountMismatch) {
		t.Fatalf("SealBatch(mismatch) error = %v, want ErrPasswordCountMismatch", err)
	}

	passwords := []string{"pw-a", "", "pw-c"}

	results, err := m.SealBatch(ctx, items, passwords, 2)
	if err != nil {
		t.Fatalf("SealBatch error: %v", err)
	}

	for i, res := range results {
		if res.Name != items[i].Name || res.Err != nil {
			t.Fatalf("result %d = %+v", i, res)
		}

		got, err := m.Open(ctx, res.Sealed, passwords[i], audit.Source{})
		if err != nil {
			t.Fatalf("Open(%s) error: %v", res.Name, err)
		}

		if !bytes.Equal(got, items[i].Payload) {
			t.Errorf("Open(%s) = %q, want %q", res.Name, got, items[i].Payload)
		}
	}

	if _, err := m.Open(ctx, results[2].Sealed, "pw-a", audit.Source{}); !errors.Is(err, envelope.ErrInvalidPassword) {
		t.Errorf("passwords were not mapped one to one: %v", err)
	}
}

func TestSealBatchCanceled(t *testing.T) {
	t.Parallel()

	m := newManager(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := m.SealBatch(ctx, []envelope.BatchItem{{Name: "a", Mode: envelope.ModePlain}}, []string{""}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}

	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("result error = %v, want context.Canceled", results[0].Err)
	}
}

func TestNewRejectsInvalidParams(t *testing.T) {
	t.Parallel()

	if _, err := envelope.New(envelope.WithParams(kdf.Params{})); !errors.Is(err, kdf.ErrInvalidParams) {
		t.Errorf("New error = %v, want ErrInvalidParams", err)
	}
}

func TestNilOptionsUseDefaults(t *testing.T) {
	t.Parallel()

	var nilLogger *logrus.Logger

	for name, logger := range map[string]logrus.FieldLogger{"nil": nil, "nil pointer": nilLogger} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m, err := envelope.New(
				envelope.WithParams(fast),
				envelope.WithLogger(logger),
				envelope.WithRecorder(nil),
				envelope.WithClock(nil),
			)
			if err != nil {
				t.Fatalf("New error: %v", err)
			}

			_, err = m.UnwrapKey(context.Background(), make([]byte, encryption.MinBlobSize-1), "pw", kdf.Salt{}, audit.Source{})
			if !errors.Is(err, encryption.ErrMalformedBlob) {
				t.Errorf("error = %v, want ErrMalformedBlob", err)
			}

			sealed, err := m.Seal(context.Background(), []byte("hello-world"), "correct-horse", envelope.ModeSecure, audit.Source{})
			if err != nil {
				t.Fatalf("Seal error: %v", err)
			}

			if _, err := m.Open(context.Background(), sealed, "correct-horse", audit.Source{}); err != nil {
				t.Errorf("Open error: %v", err)
			}
		})
	}
}
