package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/cloak/internal/access"
	"github.com/idelchi/cloak/internal/audit"
	"github.com/idelchi/cloak/internal/envelope"
	"github.com/idelchi/cloak/internal/kdf"
	"github.com/idelchi/cloak/internal/store"
)

func backends(t *testing.T) map[string]func(t *testing.T) store.Store {
	t.Helper()

	return map[string]func(t *testing.T) store.Store{
		"memory": func(t *testing.T) store.Store {
			t.Helper()

			return store.NewMemory()
		},
		"sqlite": func(t *testing.T) store.Store {
			t.Helper()

			s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "db", "cloak.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })

			return s
		},
	}
}

func TestTokens(t *testing.T) {
	t.Parallel()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := open(t)
			ctx := context.Background()
			issued := time.Date(2026, 10, 19, 9, 0, 0, 123, time.UTC)

			rec := access.TokenRecord{
				Digest:    "abc123",
				FolderID:  "folder-1",
				UserID:    "user-1",
				IssuedAt:  issued,
				ExpiresAt: issued.Add(access.DefaultTTL),
			}

			require.NoError(t, s.CreateToken(ctx, rec))
			require.Error(t, s.CreateToken(ctx, rec), "token records are create-only")

			got, err := s.FindToken(ctx, "abc123")
			require.NoError(t, err)
			require.Equal(t, rec.FolderID, got.FolderID)
			require.Equal(t, rec.UserID, got.UserID)
			require.True(t, rec.IssuedAt.Equal(got.IssuedAt))
			require.True(t, rec.ExpiresAt.Equal(got.ExpiresAt))

			_, err = s.FindToken(ctx, "missing")
			require.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestAuditLog(t *testing.T) {
	t.Parallel()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := open(t)
			ctx := context.Background()
			base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

			var written []audit.Entry

			for i, action := range []audit.Action{
				audit.ActionWrapKey, audit.ActionUnwrapKey, audit.ActionUnlockFolder, audit.ActionVerifyToken,
			} {
				e := audit.Entry{
					ID:        uuid.New(),
					Action:    action,
					Success:   i%2 == 0,
					Timestamp: base.Add(time.Duration(i) * time.Minute),
					Source:    audit.Source{RemoteAddr: "10.0.0.1", UserAgent: "cli", Resource: "file-1"},
				}

				if i > 0 {
					e.Actor = "user-1"
					e.Source.Actor = "user-1"
				}

				require.NoError(t, s.Record(ctx, e))

				written = append(written, e)
			}

			all, err := s.ListAudit(ctx, 0)
			require.NoError(t, err)
			require.Len(t, all, len(written))

			for i := range written {
				require.Equal(t, written[i].ID, all[i].ID)
				require.Equal(t, written[i].Action, all[i].Action)
				require.Equal(t, written[i].Success, all[i].Success)
				require.Equal(t, written[i].Actor, all[i].Actor)
				require.Equal(t, written[i].Source, all[i].Source)
				require.True(t, written[i].Timestamp.Equal(all[i].Timestamp))
			}

			last, err := s.ListAudit(ctx, 2)
			require.NoError(t, err)
			require.Len(t, last, 2)
			require.Equal(t, written[2].ID, last[0].ID)
			require.Equal(t, written[3].ID, last[1].ID)
		})
	}
}

func TestFolders(t *testing.T) {
	t.Parallel()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := open(t)
			ctx := context.Background()

			_, err := s.GetFolder(ctx, "folder-1")
			require.ErrorIs(t, err, store.ErrNotFound)

			require.NoError(t, s.PutFolder(ctx, store.Folder{ID: "folder-1", CreatedAt: time.Now()}))

			f, err := s.GetFolder(ctx, "folder-1")
			require.NoError(t, err)
			require.False(t, f.Gate().Protected())

			require.NoError(t, s.PutFolder(ctx, store.Folder{ID: "folder-1", PasswordHash: "$argon2id$x", CreatedAt: time.Now()}))

			f, err = s.GetFolder(ctx, "folder-1")
			require.NoError(t, err)
			require.True(t, f.Gate().Protected())
			require.Equal(t, "folder-1", f.Gate().ID)
		})
	}
}

func TestFiles(t *testing.T) {
	t.Parallel()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := open(t)
			ctx := context.Background()

			salt, err := kdf.NewSalt()
			require.NoError(t, err)

			secure := store.File{
				ID:        uuid.NewString(),
				FolderID:  "folder-1",
				Name:      "cat.png",
				Mode:      envelope.ModeSecure,
				KeyBlob:   []byte("0123456789012345678901234567890123456789"),
				Salt:      salt,
				Size:      11,
				CreatedAt: time.Now().UTC(),
			}
			plain := store.File{
				ID:        uuid.NewString(),
				Name:      "dog.png",
				Mode:      envelope.ModePlain,
				Size:      3,
				CreatedAt: time.Now().UTC(),
			}

			require.NoError(t, s.CreateFile(ctx, secure))
			require.NoError(t, s.CreateFile(ctx, plain))
			require.Error(t, s.CreateFile(ctx, plain))

			got, err := s.GetFile(ctx, secure.ID)
			require.NoError(t, err)
			require.Equal(t, secure.FolderID, got.FolderID)
			require.Equal(t, secure.Mode, got.Mode)
			require.Equal(t, secure.KeyBlob, got.KeyBlob)
			require.Equal(t, secure.Salt, got.Salt)

			sealed := got.Sealed([]byte("blob"))
			require.True(t, sealed.Protected())
			require.Equal(t, []byte("blob"), sealed.FileBlob)

			got, err = s.GetFile(ctx, plain.ID)
			require.NoError(t, err)
			require.Empty(t, got.FolderID)
			require.Empty(t, got.KeyBlob)
			require.Equal(t, kdf.Salt{}, got.Salt)
			require.False(t, got.Sealed(nil).Protected())

			require.NoError(t, s.DeleteFile(ctx, plain.ID))
			require.ErrorIs(t, s.DeleteFile(ctx, plain.ID), store.ErrNotFound)

			_, err = s.GetFile(ctx, plain.ID)
			require.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestSQLiteReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cloak.db")
	ctx := context.Background()

	s, err := store.OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.PutFolder(ctx, store.Folder{ID: "folder-1", PasswordHash: "h", CreatedAt: time.Now()}))
	require.NoError(t, s.Close())

	s, err = store.OpenSQLite(path)
	require.NoError(t, err)

	defer s.Close()

	f, err := s.GetFolder(ctx, "folder-1")
	require.NoError(t, err)
	require.Equal(t, "h", f.PasswordHash)
}
