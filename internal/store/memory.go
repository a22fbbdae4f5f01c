package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/idelchi/cloak/internal/access"
	"github.com/idelchi/cloak/internal/audit"
)

// Memory is an in-process Store. The zero value is not usable; use NewMemory.
type Memory struct {
	mu      sync.RWMutex
	tokens  map[string]access.TokenRecord
	folders map[string]Folder
	files   map[string]File
	entries []audit.Entry
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		tokens:  make(map[string]access.TokenRecord),
		folders: make(map[string]Folder),
		files:   make(map[string]File),
	}
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func (m *Memory) CreateToken(_ context.Context, rec access.TokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokens[rec.Digest]; ok {
		return fmt.Errorf("token digest %q already exists", rec.Digest)
	}

	m.tokens[rec.Digest] = rec

	return nil
}

func (m *Memory) FindToken(_ context.Context, digest string) (access.TokenRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.tokens[digest]
	if !ok {
		return access.TokenRecord{}, fmt.Errorf("token: %w", ErrNotFound)
	}

	return rec, nil
}

func (m *Memory) Record(_ context.Context, e audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, e)

	return nil
}

func (m *Memory) ListAudit(_ context.Context, limit int) ([]audit.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	if limit > 0 && limit < len(m.entries) {
		start = len(m.entries) - limit
	}

	return append([]audit.Entry(nil), m.entries[start:]...), nil
}

func (m *Memory) PutFolder(_ context.Context, f Folder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.folders[f.ID]; ok {
		f.CreatedAt = existing.CreatedAt
	}

	m.folders[f.ID] = f

	return nil
}

func (m *Memory) GetFolder(_ context.Context, id string) (Folder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.folders[id]
	if !ok {
		return Folder{}, fmt.Errorf("folder %q: %w", id, ErrNotFound)
	}

	return f, nil
}

func (m *Memory) CreateFile(_ context.Context, f File) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[f.ID]; ok {
		return fmt.Errorf("file %q already exists", f.ID)
	}

	f.KeyBlob = append([]byte(nil), f.KeyBlob...)
	m.files[f.ID] = f

	return nil
}

func (m *Memory) GetFile(_ context.Context, id string) (File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.files[id]
	if !ok {
		return File{}, fmt.Errorf("file %q: %w", id, ErrNotFound)
	}

	return f, nil
}

func (m *Memory) DeleteFile(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[id]; !ok {
		return fmt.Errorf("file %q: %w", id, ErrNotFound)
	}

	delete(m.files, id)

	return nil
}
