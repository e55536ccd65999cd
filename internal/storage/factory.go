package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	gdriveadapter "github.com/matasmazeikaa/copyviral-sub002/internal/adapters/storage/gdrive"
	"github.com/matasmazeikaa/copyviral-sub002/internal/adapters/storage/localfs"
	s3adapter "github.com/matasmazeikaa/copyviral-sub002/internal/adapters/storage/s3"
	"github.com/matasmazeikaa/copyviral-sub002/internal/config"
	"github.com/matasmazeikaa/copyviral-sub002/internal/ports"
)

// NewStore builds the configured object storage adapter.
func NewStore(ctx context.Context, cfg config.StorageConfig) (ports.ObjectStore, error) {
	switch cfg.Provider {
	case "localfs":
		return localfs.New(cfg.LocalRoot), nil

	case "s3":
		client, err := minio.New(cfg.S3.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
			Secure: cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		return s3adapter.New(client, cfg.S3.Bucket), nil

	case "gdrive":
		return newGDriveStore(ctx, cfg.GDrive)

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}

func newGDriveStore(ctx context.Context, cfg config.GDriveConfig) (ports.ObjectStore, error) {
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}

	tok := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("gdrive service: %w", err)
	}

	return gdriveadapter.New(srv, cfg.RootFolderID), nil
}
