package logic

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/idelchi/cloak/internal/config"
	"github.com/idelchi/cloak/internal/envelope"
	"github.com/idelchi/cloak/internal/fileutil"
	"github.com/idelchi/cloak/internal/store"
)

const blobPerm = 0o600

// RunSeal encrypts files into the blob directory and records them in the store.
//
//nolint:cyclop,funlen // read, seal, persist and report pipeline
func RunSeal(ctx context.Context, cfg *config.Config, streams Streams) error {
	start := time.Now()

	files, passwords, err := sealInputs(cfg)
	if err != nil {
		return err
	}

	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.Folder != "" {
		if err := ensureFolder(ctx, app.Store, cfg.Folder); err != nil {
			return err
		}
	}

	mode := envelope.ModeSecure
	if cfg.Plain {
		mode = envelope.ModePlain
	}

	ids := make([]string, len(files))
	items := make([]envelope.BatchItem, len(files))
	unreadable := make([]bool, len(files))

	var readErrs int

	for i, file := range files {
		ids[i] = uuid.NewString()

		payload, err := os.ReadFile(file) //nolint:gosec // path is from user-supplied arguments
		if err != nil {
			readErrs++
			unreadable[i] = true

			fmt.Fprintf(streams.Err, "Error reading %q: %v\n", file, err)

			// Keeps positions aligned with passwords; the result is discarded.
			items[i] = envelope.BatchItem{Name: file, Mode: envelope.ModePlain}

			continue
		}

		items[i] = envelope.BatchItem{
			Name:    file,
			Payload: payload,
			Mode:    mode,
			Source:  cliSource(cfg, ids[i]),
		}
	}

	results, err := app.Envelope.SealBatch(ctx, items, passwords, cfg.Parallel)
	if errors.Is(err, envelope.ErrPasswordCountMismatch) {
		return err
	}

	s := stats{scanned: len(files), errored: readErrs}

	for i, res := range results {
		if unreadable[i] {
			continue
		}

		if res.Err != nil {
			s.errored++

			fmt.Fprintf(streams.Err, "Error sealing %q: %v\n", res.Name, res.Err)

			continue
		}

		size, err := persist(ctx, app, cfg, ids[i], res, int64(len(items[i].Payload)))
		if err != nil {
			s.errored++

			fmt.Fprintf(streams.Err, "Error storing %q: %v\n", res.Name, err)

			continue
		}

		s.processed++
		s.totalSize += size

		if !cfg.Quiet {
			fmt.Fprintf(streams.Out, "Sealed %q -> %s (%s)\n", res.Name, ids[i], res.Sealed.Mode)
		}
	}

	s.duration = time.Since(start)

	if cfg.Stats {
		printStats(streams.Err, s)
	}

	if s.errored > 0 {
		return fmt.Errorf("sealing files: %d of %d failed", s.errored, s.scanned)
	}

	return nil
}

// sealInputs resolves the files to seal and their positional passwords.
// Secure-mode passwords are checked before anything is read or sealed.
func sealInputs(cfg *config.Config) ([]string, []string, error) {
	if cfg.Manifest != "" {
		m, err := LoadManifest(cfg.Manifest)
		if err != nil {
			return nil, nil, err
		}

		if cfg.Plain && len(m.Passwords) == 0 {
			m.Passwords = make([]string, len(m.Files))
		}

		if !cfg.Plain {
			for i, pw := range m.Passwords {
				if err := checkPassword(fmt.Sprintf("manifest password %d", i+1), pw); err != nil {
					return nil, nil, err
				}
			}
		}

		return m.Files, m.Passwords, nil
	}

	if !cfg.Plain {
		if err := checkPassword("--password", cfg.Password); err != nil {
			return nil, nil, err
		}
	}

	passwords := make([]string, len(cfg.Files))
	for i := range passwords {
		passwords[i] = cfg.Password
	}

	return cfg.Files, passwords, nil
}

func persist(ctx context.Context, app *App, cfg *config.Config, id string, res envelope.BatchResult, size int64) (int64, error) {
	written, err := fileutil.WriteFile(fileutil.BlobPath(app.BlobDir, id), res.Sealed.FileBlob, blobPerm)
	if err != nil {
		return 0, err
	}

	file := store.File{
		ID:        id,
		FolderID:  cfg.Folder,
		Name:      filepath.Base(res.Name),
		Mode:      res.Sealed.Mode,
		KeyBlob:   res.Sealed.KeyBlob,
		Salt:      res.Sealed.Salt,
		Size:      size,
		CreatedAt: time.Now().UTC(),
	}

	if err := app.Store.CreateFile(ctx, file); err != nil {
		os.Remove(fileutil.BlobPath(app.BlobDir, id)) //nolint:gosec // best-effort cleanup

		return 0, err
	}

	return written, nil
}

// ensureFolder creates an unprotected folder unless it already exists.
func ensureFolder(ctx context.Context, st store.Store, id string) error {
	_, err := st.GetFolder(ctx, id)
	if err == nil {
		return nil
	}

	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	return st.PutFolder(ctx, store.Folder{ID: id, CreatedAt: time.Now().UTC()})
}
