// Package localfs implements ports.ObjectStore on the local filesystem,
// for development and tests. Objects live under a configured root
// directory; key segments map to directories.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matasmazeikaa/copyviral-sub002/internal/ports"
)

type LocalFS struct {
	root string
}

func New(root string) *LocalFS {
	return &LocalFS{root: root}
}

func (l *LocalFS) Provider() string { return "localfs" }

func (l *LocalFS) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

func (l *LocalFS) List(ctx context.Context, prefix string, offset, limit int) ([]ports.ObjectInfo, error) {
	if limit <= 0 || limit > ports.MaxListPageSize {
		limit = ports.MaxListPageSize
	}

	entries, err := os.ReadDir(l.path(prefix))
	if err != nil {
		if os.IsNotExist(err) {
			// A prefix nobody wrote under lists as empty, same as the
			// hosted providers.
			return nil, nil
		}
		return nil, err
	}

	if offset >= len(entries) {
		return nil, nil
	}
	entries = entries[offset:]
	if len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]ports.ObjectInfo, 0, len(entries))
	for _, e := range entries {
		info := ports.ObjectInfo{Name: e.Name(), IsPrefix: e.IsDir()}
		if !e.IsDir() {
			fi, err := e.Info()
			if err != nil {
				return nil, err
			}
			info.Size = fi.Size()
		}
		out = append(out, info)
	}
	return out, nil
}

func (l *LocalFS) Put(ctx context.Context, in ports.PutObjectInput) error {
	if in.Key == "" {
		return fmt.Errorf("object key is required")
	}

	dst := l.path(in.Key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, in.Reader)
	return err
}

func (l *LocalFS) Stat(ctx context.Context, key string) (ports.ObjectInfo, error) {
	fi, err := os.Stat(l.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ports.ObjectInfo{}, ports.ErrObjectNotFound
		}
		return ports.ObjectInfo{}, err
	}
	return ports.ObjectInfo{
		Name:     filepath.Base(key),
		Size:     fi.Size(),
		IsPrefix: fi.IsDir(),
	}, nil
}

func (l *LocalFS) Move(ctx context.Context, src, dst string) error {
	if _, err := os.Stat(l.path(dst)); err == nil {
		return fmt.Errorf("destination already exists: %s", dst)
	}
	if _, err := os.Stat(l.path(src)); err != nil {
		if os.IsNotExist(err) {
			return ports.ErrObjectNotFound
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.path(dst)), 0o755); err != nil {
		return err
	}
	return os.Rename(l.path(src), l.path(dst))
}

func (l *LocalFS) Remove(ctx context.Context, key string) error {
	err := os.Remove(l.path(key))
	if os.IsNotExist(err) {
		return ports.ErrObjectNotFound
	}
	return err
}
