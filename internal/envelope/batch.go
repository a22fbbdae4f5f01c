package envelope

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/idelchi/cloak/internal/audit"
)

// BatchItem is one file of a multi-file upload.
type BatchItem struct {
	Name    string
	Payload []byte
	Mode    Mode
	Source  audit.Source
}

// BatchResult reports the outcome for the item at the same index.
type BatchResult struct {
	Name   string
	Sealed *Sealed
	Err    error
}

// SealBatch seals items concurrently, at most parallel at a time.
//
// passwords[i] belongs to items[i]; the entry of a plain item is ignored. A length
// mismatch is rejected before any item is processed. Each failure is reported on its
// result; the returned error is the first of them.
func (m *Manager) SealBatch(
	ctx context.Context,
	items []BatchItem,
	passwords []string,
	parallel int,
) ([]BatchResult, error) {
	if len(passwords) != len(items) {
		return nil, fmt.Errorf("%w: %d files, %d passwords", ErrPasswordCountMismatch, len(items), len(passwords))
	}

	if parallel < 1 {
		parallel = 1
	}

	results := make([]BatchResult, len(items))

	var group errgroup.Group

	group.SetLimit(parallel)

	for i, item := range items {
		results[i].Name = item.Name

		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err

				return err
			}

			sealed, err := m.Seal(ctx, item.Payload, passwords[i], item.Mode, item.Source)
			if err != nil {
				results[i].Err = err

				return fmt.Errorf("sealing %q: %w", item.Name, err)
			}

			results[i].Sealed = sealed

			return nil
		})
	}

	return results, group.Wait()
}
