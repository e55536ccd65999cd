package storage

import (
	"context"
	"path"
	"strings"

	"github.com/matasmazeikaa/copyviral-sub002/internal/models"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/logger"
	"github.com/matasmazeikaa/copyviral-sub002/internal/ports"
)

// Hosted storage writes a marker object into otherwise-empty folders;
// it must not count against the quota.
const emptyFolderPlaceholder = ".emptyFolderPlaceholder"

// Accountant computes an account's storage usage by recursively walking
// its prefixes in both storage areas.
//
// Usage never fails the caller: a subtree whose listing errors
// contributes zero bytes and flips the snapshot's Degraded flag. That
// trades accuracy for availability on admission checks.
type Accountant struct {
	store    ports.ObjectStore
	log      *logger.Logger
	pageSize int
}

func NewAccountant(store ports.ObjectStore, log *logger.Logger) *Accountant {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Accountant{
		store:    store,
		log:      log.WithComponent("accountant"),
		pageSize: ports.MaxListPageSize,
	}
}

// Usage returns a fresh snapshot of the account's consumption across
// the media-library and renders areas.
func (a *Accountant) Usage(ctx context.Context, accountID string) models.StorageUsage {
	var snap models.StorageUsage

	snap.MediaLibrary = a.walk(ctx, path.Join(models.AreaMediaLibrary, accountID), &snap.Degraded)
	snap.Renders = a.walk(ctx, path.Join(models.AreaRenders, accountID), &snap.Degraded)
	snap.TotalUsedBytes = snap.MediaLibrary.Bytes + snap.Renders.Bytes

	return snap
}

// walk sums every object under prefix, recursing into sub-directories
// and paginating each directory level until a short page is returned.
func (a *Accountant) walk(ctx context.Context, prefix string, degraded *bool) models.AreaUsage {
	var usage models.AreaUsage

	for offset := 0; ; offset += a.pageSize {
		page, err := a.store.List(ctx, prefix, offset, a.pageSize)
		if err != nil {
			// Zero-contribution fallback: log, mark the snapshot
			// degraded, and keep the admission path available.
			a.log.FromContext(ctx).Warn("storage listing failed, counting subtree as empty",
				"prefix", prefix,
				"error", err.Error(),
			)
			*degraded = true
			return usage
		}

		for _, obj := range page {
			if strings.HasPrefix(obj.Name, ".") || obj.Name == emptyFolderPlaceholder {
				continue
			}
			if obj.IsPrefix {
				sub := a.walk(ctx, path.Join(prefix, obj.Name), degraded)
				usage.Bytes += sub.Bytes
				usage.Files += sub.Files
				continue
			}
			usage.Bytes += obj.Size
			usage.Files++
		}

		if len(page) < a.pageSize {
			return usage
		}
	}
}
