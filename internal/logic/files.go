package logic

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/idelchi/cloak/internal/fileutil"
)

// ReadBlob returns the stored FileBlob of file id.
func (a *App) ReadBlob(id string) ([]byte, error) {
	blob, err := os.ReadFile(fileutil.BlobPath(a.BlobDir, id))
	if err != nil {
		return nil, fmt.Errorf("reading blob: %w", err)
	}

	return blob, nil
}

// DeleteFile removes the record of file id and then its blob. A blob that is already
// gone is not an error.
func (a *App) DeleteFile(ctx context.Context, id string) error {
	if err := a.Store.DeleteFile(ctx, id); err != nil {
		return err
	}

	if err := os.Remove(fileutil.BlobPath(a.BlobDir, id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		a.Logger.WithField("file", id).WithError(err).Warn("removing blob of deleted file")
	}

	return nil
}
