// Package gdrive implements ports.ObjectStore backed by Google Drive.
// Key segments map to nested Drive folders under a configured root
// folder; the object's base name is the Drive file name.
package gdrive

import (
	"context"
	"fmt"
	"path"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/matasmazeikaa/copyviral-sub002/internal/ports"
)

const folderMimeType = "application/vnd.google-apps.folder"

type Store struct {
	srv    *drive.Service
	rootID string
}

func New(srv *drive.Service, rootFolderID string) *Store {
	return &Store{srv: srv, rootID: rootFolderID}
}

func (s *Store) Provider() string { return "gdrive" }

func (s *Store) List(ctx context.Context, prefix string, offset, limit int) ([]ports.ObjectInfo, error) {
	if limit <= 0 || limit > ports.MaxListPageSize {
		limit = ports.MaxListPageSize
	}

	folderID, err := s.resolveFolder(ctx, prefix, false)
	if err != nil {
		if ports.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	// Drive paginates with tokens, not offsets; read and discard up to
	// offset entries before filling the page.
	out := make([]ports.ObjectInfo, 0, limit)
	seen := 0
	pageToken := ""
	for {
		call := s.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and trashed=false", folderID)).
			Fields("nextPageToken, files(id,name,mimeType,size)").
			OrderBy("name").
			PageSize(int64(limit))
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		res, err := call.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("gdrive list %q: %w", prefix, err)
		}

		for _, f := range res.Files {
			seen++
			if seen <= offset {
				continue
			}
			out = append(out, ports.ObjectInfo{
				Name:     f.Name,
				Size:     f.Size,
				IsPrefix: f.MimeType == folderMimeType,
			})
			if len(out) >= limit {
				return out, nil
			}
		}

		if res.NextPageToken == "" {
			return out, nil
		}
		pageToken = res.NextPageToken
	}
}

func (s *Store) Put(ctx context.Context, in ports.PutObjectInput) error {
	if in.Key == "" {
		return fmt.Errorf("object key is required")
	}

	parentID, err := s.resolveFolder(ctx, path.Dir(in.Key), true)
	if err != nil {
		return err
	}

	file := &drive.File{Name: path.Base(in.Key), Parents: []string{parentID}}
	call := s.srv.Files.Create(file)
	if in.ContentType != "" {
		call = call.Media(in.Reader, googleapi.ContentType(in.ContentType))
	} else {
		call = call.Media(in.Reader)
	}

	if _, err := call.Context(ctx).Do(); err != nil {
		return fmt.Errorf("gdrive upload %q: %w", in.Key, err)
	}
	return nil
}

func (s *Store) Stat(ctx context.Context, key string) (ports.ObjectInfo, error) {
	f, err := s.findByKey(ctx, key)
	if err != nil {
		return ports.ObjectInfo{}, err
	}
	return ports.ObjectInfo{
		Name:     f.Name,
		Size:     f.Size,
		IsPrefix: f.MimeType == folderMimeType,
	}, nil
}

func (s *Store) Move(ctx context.Context, src, dst string) error {
	if _, err := s.findByKey(ctx, dst); err == nil {
		return fmt.Errorf("destination already exists: %s", dst)
	}

	f, err := s.findByKey(ctx, src)
	if err != nil {
		return err
	}

	dstParent, err := s.resolveFolder(ctx, path.Dir(dst), true)
	if err != nil {
		return err
	}
	srcParent, err := s.resolveFolder(ctx, path.Dir(src), false)
	if err != nil {
		return err
	}

	_, err = s.srv.Files.Update(f.Id, &drive.File{Name: path.Base(dst)}).
		AddParents(dstParent).
		RemoveParents(srcParent).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("gdrive move %q -> %q: %w", src, dst, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	f, err := s.findByKey(ctx, key)
	if err != nil {
		return err
	}
	if err := s.srv.Files.Delete(f.Id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gdrive delete %q: %w", key, err)
	}
	return nil
}

// resolveFolder walks the prefix segment by segment from the root
// folder, optionally creating missing folders along the way.
func (s *Store) resolveFolder(ctx context.Context, prefix string, create bool) (string, error) {
	current := s.rootID
	prefix = strings.Trim(prefix, "/")
	if prefix == "" || prefix == "." {
		return current, nil
	}

	for _, seg := range strings.Split(prefix, "/") {
		id, err := s.childByName(ctx, current, seg, true)
		if err != nil {
			if !ports.IsNotFound(err) || !create {
				return "", err
			}
			created, cerr := s.srv.Files.Create(&drive.File{
				Name:     seg,
				MimeType: folderMimeType,
				Parents:  []string{current},
			}).Context(ctx).Do()
			if cerr != nil {
				return "", fmt.Errorf("gdrive mkdir %q: %w", seg, cerr)
			}
			id = created.Id
		}
		current = id
	}
	return current, nil
}

func (s *Store) childByName(ctx context.Context, parentID, name string, foldersOnly bool) (string, error) {
	q := fmt.Sprintf("'%s' in parents and name='%s' and trashed=false",
		parentID, strings.ReplaceAll(name, "'", `\'`))
	if foldersOnly {
		q += fmt.Sprintf(" and mimeType='%s'", folderMimeType)
	}

	res, err := s.srv.Files.List().Q(q).Fields("files(id)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gdrive lookup %q: %w", name, err)
	}
	if len(res.Files) == 0 {
		return "", ports.ErrObjectNotFound
	}
	return res.Files[0].Id, nil
}

func (s *Store) findByKey(ctx context.Context, key string) (*drive.File, error) {
	parentID, err := s.resolveFolder(ctx, path.Dir(key), false)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf("'%s' in parents and name='%s' and trashed=false",
		parentID, strings.ReplaceAll(path.Base(key), "'", `\'`))
	res, err := s.srv.Files.List().Q(q).Fields("files(id,name,mimeType,size)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gdrive lookup %q: %w", key, err)
	}
	if len(res.Files) == 0 {
		return nil, ports.ErrObjectNotFound
	}
	return res.Files[0], nil
}
