package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/idelchi/cloak/internal/access"
	"github.com/idelchi/cloak/internal/audit"
	"github.com/idelchi/cloak/internal/envelope"
	"github.com/idelchi/cloak/internal/kdf"
)

const schema = `
CREATE TABLE IF NOT EXISTS folders (
	id            TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id         TEXT PRIMARY KEY,
	folder_id  TEXT,
	name       TEXT NOT NULL,
	mode       TEXT NOT NULL,
	key_blob   BLOB,
	salt       BLOB,
	size       INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_files_folder ON files(folder_id);

CREATE TABLE IF NOT EXISTS access_tokens (
	digest     TEXT PRIMARY KEY,
	folder_id  TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	issued_at  INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT UNIQUE NOT NULL,
	actor       TEXT,
	action      TEXT NOT NULL,
	success     INTEGER NOT NULL,
	remote_addr TEXT NOT NULL DEFAULT '',
	user_agent  TEXT NOT NULL DEFAULT '',
	resource    TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL
);
`

// SQLite is a Store backed by a single SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and applies the schema.
// The path ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()

			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateToken implements access.TokenStore.
func (s *SQLite) CreateToken(ctx context.Context, rec access.TokenRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO access_tokens (digest, folder_id, user_id, issued_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Digest, rec.FolderID, rec.UserID, rec.IssuedAt.UnixNano(), rec.ExpiresAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting token: %w", err)
	}

	return nil
}

// FindToken implements access.TokenStore.
func (s *SQLite) FindToken(ctx context.Context, digest string) (access.TokenRecord, error) {
	var (
		rec             access.TokenRecord
		issued, expires int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT digest, folder_id, user_id, issued_at, expires_at FROM access_tokens WHERE digest = ?`,
		digest,
	).Scan(&rec.Digest, &rec.FolderID, &rec.UserID, &issued, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return access.TokenRecord{}, fmt.Errorf("token: %w", ErrNotFound)
	}

	if err != nil {
		return access.TokenRecord{}, fmt.Errorf("querying token: %w", err)
	}

	rec.IssuedAt = fromNanos(issued)
	rec.ExpiresAt = fromNanos(expires)

	return rec, nil
}

// Record implements audit.Recorder. An empty actor is stored as NULL.
func (s *SQLite) Record(ctx context.Context, e audit.Entry) error {
	var actor sql.NullString
	if e.Actor != "" {
		actor = sql.NullString{String: e.Actor, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, actor, action, success, remote_addr, user_agent, resource, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), actor, string(e.Action), e.Success,
		e.Source.RemoteAddr, e.Source.UserAgent, e.Source.Resource, e.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}

// ListAudit implements Store.
func (s *SQLite) ListAudit(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit < 1 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, actor, action, success, remote_addr, user_agent, resource, created_at FROM (
			SELECT * FROM audit_log ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry

	for rows.Next() {
		var (
			e       audit.Entry
			id      string
			actor   sql.NullString
			action  string
			created int64
		)

		if err := rows.Scan(&id, &actor, &action, &e.Success,
			&e.Source.RemoteAddr, &e.Source.UserAgent, &e.Source.Resource, &created); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing audit id %q: %w", id, err)
		}

		e.Actor = actor.String
		e.Source.Actor = actor.String
		e.Action = audit.Action(action)
		e.Timestamp = fromNanos(created)

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// PutFolder implements Store.
func (s *SQLite) PutFolder(ctx context.Context, f Folder) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO folders (id, password_hash, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET password_hash = excluded.password_hash`,
		f.ID, f.PasswordHash, f.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving folder: %w", err)
	}

	return nil
}

// GetFolder implements Store.
func (s *SQLite) GetFolder(ctx context.Context, id string) (Folder, error) {
	var (
		f       Folder
		created int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash, created_at FROM folders WHERE id = ?`, id,
	).Scan(&f.ID, &f.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Folder{}, fmt.Errorf("folder %q: %w", id, ErrNotFound)
	}

	if err != nil {
		return Folder{}, fmt.Errorf("querying folder: %w", err)
	}

	f.CreatedAt = fromNanos(created)

	return f, nil
}

// CreateFile implements Store.
func (s *SQLite) CreateFile(ctx context.Context, f File) error {
	var (
		folder  sql.NullString
		keyBlob []byte
		salt    []byte
	)

	if f.FolderID != "" {
		folder = sql.NullString{String: f.FolderID, Valid: true}
	}

	if f.Mode == envelope.ModeSecure {
		keyBlob = f.KeyBlob
		salt = f.Salt[:]
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (id, folder_id, name, mode, key_blob, salt, size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, folder, f.Name, string(f.Mode), keyBlob, salt, f.Size, f.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting file: %w", err)
	}

	return nil
}

// GetFile implements Store.
func (s *SQLite) GetFile(ctx context.Context, id string) (File, error) {
	var (
		f       File
		folder  sql.NullString
		mode    string
		salt    []byte
		created int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT id, folder_id, name, mode, key_blob, salt, size, created_at FROM files WHERE id = ?`, id,
	).Scan(&f.ID, &folder, &f.Name, &mode, &f.KeyBlob, &salt, &f.Size, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return File{}, fmt.Errorf("file %q: %w", id, ErrNotFound)
	}

	if err != nil {
		return File{}, fmt.Errorf("querying file: %w", err)
	}

	if f.Mode, err = envelope.ParseMode(mode); err != nil {
		return File{}, err
	}

	if f.Mode == envelope.ModeSecure {
		if f.Salt, err = kdf.SaltFromBytes(salt); err != nil {
			return File{}, fmt.Errorf("file %q: %w", id, err)
		}
	}

	f.FolderID = folder.String
	f.CreatedAt = fromNanos(created)

	return f, nil
}

// DeleteFile implements Store.
func (s *SQLite) DeleteFile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("file %q: %w", id, ErrNotFound)
	}

	return nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
