package store

import (
	"context"
	"errors"
	"time"

	"github.com/idelchi/cloak/internal/access"
	"github.com/idelchi/cloak/internal/audit"
	"github.com/idelchi/cloak/internal/envelope"
	"github.com/idelchi/cloak/internal/kdf"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Folder is a stored folder.
type Folder struct {
	ID string
	// PasswordHash is an Argon2id PHC string, empty for an unprotected folder.
	PasswordHash string
	CreatedAt    time.Time
}

// Gate returns the folder as seen by the access gate.
func (f Folder) Gate() access.Folder {
	return access.Folder{ID: f.ID, PasswordHash: f.PasswordHash}
}

// File is the metadata of a stored file. Its FileBlob lives in the blob directory.
type File struct {
	ID string
	// FolderID is empty for files outside any folder.
	FolderID  string
	Name      string
	Mode      envelope.Mode
	KeyBlob   []byte
	Salt      kdf.Salt
	Size      int64
	CreatedAt time.Time
}

// Sealed joins the record with its FileBlob.
func (f File) Sealed(fileBlob []byte) *envelope.Sealed {
	return &envelope.Sealed{
		Mode:     f.Mode,
		FileBlob: fileBlob,
		KeyBlob:  f.KeyBlob,
		Salt:     f.Salt,
	}
}

// Store is the persistence surface used by the CLI and the HTTP gate.
type Store interface {
	access.TokenStore
	audit.Recorder

	// PutFolder creates a folder or replaces its password hash.
	PutFolder(ctx context.Context, folder Folder) error
	GetFolder(ctx context.Context, id string) (Folder, error)

	CreateFile(ctx context.Context, file File) error
	GetFile(ctx context.Context, id string) (File, error)
	DeleteFile(ctx context.Context, id string) error

	// ListAudit returns the most recent limit entries, oldest first. A limit below 1 returns all.
	ListAudit(ctx context.Context, limit int) ([]audit.Entry, error)

	Close() error
}
