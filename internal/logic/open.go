package logic

import (
	"context"
	"fmt"

	"github.com/idelchi/cloak/internal/audit"
	"github.com/idelchi/cloak/internal/config"
	"github.com/idelchi/cloak/internal/fileutil"
	"github.com/idelchi/cloak/internal/store"
)

const outPerm = 0o600

// RunOpen reads a stored file back. Files in a protected folder require a token issued
// to --user; secure files additionally require their password.
func RunOpen(ctx context.Context, cfg *config.Config, streams Streams) error {
	if cfg.ID == "" {
		return fmt.Errorf("%w: --id is required", config.ErrUsage)
	}

	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	file, err := app.Store.GetFile(ctx, cfg.ID)
	if err != nil {
		return err
	}

	if err := app.Authorize(ctx, file, cfg.Token, cfg.User, cliSource(cfg, file.FolderID)); err != nil {
		return friendly(err)
	}

	blob, err := app.ReadBlob(file.ID)
	if err != nil {
		return err
	}

	plaintext, err := app.Envelope.Open(ctx, file.Sealed(blob), cfg.Password, cliSource(cfg, file.ID))
	if err != nil {
		return fmt.Errorf("opening %q: %w", file.Name, err)
	}

	if cfg.Out == "" {
		_, err := streams.Out.Write(plaintext)

		return err
	}

	if _, err := fileutil.WriteFile(cfg.Out, plaintext, outPerm); err != nil {
		return err
	}

	if !cfg.Quiet {
		fmt.Fprintf(streams.Err, "Opened %s -> %q\n", file.ID, cfg.Out)
	}

	return nil
}

// Authorize runs the folder gate for file. Files outside any folder are unprotected;
// a missing folder record denies.
func (a *App) Authorize(ctx context.Context, file store.File, token, userID string, src audit.Source) error {
	if file.FolderID == "" {
		return nil
	}

	folder, err := a.Store.GetFolder(ctx, file.FolderID)
	if err != nil {
		return err
	}

	if !folder.Gate().Protected() {
		return nil
	}

	svc, err := a.Access()
	if err != nil {
		return err
	}

	return svc.Authorize(ctx, folder.Gate(), token, userID, src)
}
