package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/idelchi/cloak/internal/config"
	"github.com/idelchi/cloak/internal/kdf"
	"github.com/idelchi/cloak/internal/store"
)

// ErrFolderNotProtected is returned when unlocking a folder that has no password.
var ErrFolderNotProtected = errors.New("folder is not protected")

// RunFolderProtect sets the password of a folder, creating the folder if needed.
// Only an Argon2id hash of the password is stored.
func RunFolderProtect(ctx context.Context, cfg *config.Config, streams Streams) error {
	if cfg.Folder == "" || cfg.Password == "" {
		return fmt.Errorf("%w: a folder and --password are required", config.ErrUsage)
	}

	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.ProtectFolder(ctx, cfg.Folder, cfg.Password, cfg.KDF); err != nil {
		return err
	}

	if !cfg.Quiet {
		fmt.Fprintf(streams.Out, "Protected folder %q\n", cfg.Folder)
	}

	return nil
}

// ProtectFolder stores the hash of password as the folder's password.
func (a *App) ProtectFolder(ctx context.Context, folderID, password string, params kdf.Params) error {
	if err := checkPassword("folder password", password); err != nil {
		return err
	}

	hash, err := kdf.HashPassword(password, params)
	if err != nil {
		return err
	}

	folder, err := a.Store.GetFolder(ctx, folderID)

	switch {
	case errors.Is(err, store.ErrNotFound):
		folder = store.Folder{ID: folderID, CreatedAt: time.Now().UTC()}
	case err != nil:
		return err
	}

	folder.PasswordHash = hash

	return a.Store.PutFolder(ctx, folder)
}

// RunFolderUnlock issues an access token for --user on a protected folder.
func RunFolderUnlock(ctx context.Context, cfg *config.Config, streams Streams) error {
	if cfg.Folder == "" || cfg.User == "" || cfg.Password == "" {
		return fmt.Errorf("%w: a folder, --user and --password are required", config.ErrUsage)
	}

	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	svc, err := app.Access()
	if err != nil {
		return err
	}

	folder, err := app.Store.GetFolder(ctx, cfg.Folder)
	if err != nil {
		return err
	}

	if !folder.Gate().Protected() {
		return fmt.Errorf("%w: %q", ErrFolderNotProtected, cfg.Folder)
	}

	token, err := svc.Issue(ctx, folder.ID, cfg.User, cfg.Password, folder.PasswordHash, cliSource(cfg, folder.ID))
	if err != nil {
		return err
	}

	fmt.Fprintln(streams.Out, token.Value)

	if !cfg.Quiet {
		fmt.Fprintf(streams.Err, "Token for %q on %q expires at %s\n",
			token.UserID, token.FolderID, token.ExpiresAt.Format(time.RFC3339))
	}

	return nil
}
