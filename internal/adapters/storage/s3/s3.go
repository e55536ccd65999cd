// Package s3 implements ports.ObjectStore on any S3-compatible service
// via the MinIO client.
package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/matasmazeikaa/copyviral-sub002/internal/ports"
)

type Store struct {
	client *minio.Client
	bucket string
}

func New(client *minio.Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

func (s *Store) Provider() string { return "s3" }

// List walks one directory level. S3 has no native offset pagination for
// delimited listings, so entries before offset are read and discarded.
func (s *Store) List(ctx context.Context, prefix string, offset, limit int) ([]ports.ObjectInfo, error) {
	if limit <= 0 || limit > ports.MaxListPageSize {
		limit = ports.MaxListPageSize
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([]ports.ObjectInfo, 0, limit)
	seen := 0
	for obj := range s.client.ListObjects(listCtx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("s3 list %q: %w", prefix, obj.Err)
		}

		name := strings.TrimPrefix(obj.Key, prefix)
		isPrefix := strings.HasSuffix(name, "/")
		name = strings.TrimSuffix(name, "/")
		if name == "" {
			continue
		}

		seen++
		if seen <= offset {
			continue
		}

		out = append(out, ports.ObjectInfo{
			Name:     name,
			Size:     obj.Size,
			IsPrefix: isPrefix,
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) Put(ctx context.Context, in ports.PutObjectInput) error {
	if in.Key == "" {
		return fmt.Errorf("object key is required")
	}
	_, err := s.client.PutObject(ctx, s.bucket, in.Key, in.Reader, in.Size, minio.PutObjectOptions{
		ContentType: in.ContentType,
	})
	if err != nil {
		return fmt.Errorf("s3 put %q: %w", in.Key, err)
	}
	return nil
}

func (s *Store) Stat(ctx context.Context, key string) (ports.ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return ports.ObjectInfo{}, ports.ErrObjectNotFound
		}
		return ports.ObjectInfo{}, err
	}
	return ports.ObjectInfo{Name: baseName(key), Size: info.Size}, nil
}

func (s *Store) Move(ctx context.Context, src, dst string) error {
	if _, err := s.client.StatObject(ctx, s.bucket, dst, minio.StatObjectOptions{}); err == nil {
		return fmt.Errorf("destination already exists: %s", dst)
	}

	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dst},
		minio.CopySrcOptions{Bucket: s.bucket, Object: src},
	)
	if err != nil {
		if isNoSuchKey(err) {
			return ports.ErrObjectNotFound
		}
		return fmt.Errorf("s3 copy %q -> %q: %w", src, dst, err)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, src, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("s3 remove after copy %q: %w", src, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return ports.ErrObjectNotFound
		}
		return err
	}
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject"
}

func baseName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
