package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"

	"catalog-ingest/internal/config"
	"catalog-ingest/internal/domain"
)

// AssetRepository stores processed rasters in object storage. Keys are
// uuid-based, so an upload never overwrites a previously issued URL.
type AssetRepository struct {
	client  *minio.Client
	cfg     config.StorageConfig
	retries retry.Strategy
}

func NewAssetRepository(cfg config.StorageConfig, retries retry.Strategy) (*AssetRepository, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &AssetRepository{client: client, cfg: cfg, retries: retries}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (r *AssetRepository) EnsureBucket(ctx context.Context) error {
	exists, err := r.client.BucketExists(ctx, r.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := r.client.MakeBucket(ctx, r.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upload stores data under a fresh key in the given logical folder and
// returns the public asset descriptor. Retries per the configured strategy
// and classifies the final failure as ErrUpload.
func (r *AssetRepository) Upload(ctx context.Context, data []byte, contentType, folder string) (domain.UploadedAsset, error) {
	if folder == "" {
		folder = domain.FolderProducts
	}
	key := objectKey(folder, contentType)

	err := retry.Do(func() error {
		_, err := r.client.PutObject(ctx, r.cfg.Bucket, key,
			bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: contentType})
		return err
	}, r.retries)
	if err != nil {
		return domain.UploadedAsset{}, fmt.Errorf("%w: put %s: %v", domain.ErrUpload, key, err)
	}

	return domain.UploadedAsset{
		URL:         r.publicURL(key),
		Folder:      folder,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// Stage parks a cropped raster for the worker and returns its object key.
func (r *AssetRepository) Stage(ctx context.Context, data []byte, contentType string) (string, error) {
	key := objectKey(domain.FolderStaging, contentType)

	err := retry.Do(func() error {
		_, err := r.client.PutObject(ctx, r.cfg.Bucket, key,
			bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: contentType})
		return err
	}, r.retries)
	if err != nil {
		return "", fmt.Errorf("%w: stage %s: %v", domain.ErrUpload, key, err)
	}
	return key, nil
}

// GetStaged reads a staged raster back for processing.
func (r *AssetRepository) GetStaged(ctx context.Context, key string) ([]byte, error) {
	obj, err := r.client.GetObject(ctx, r.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get staged object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged object %s: %w", key, err)
	}
	return data, nil
}

// RemoveStaged deletes a staged raster once the worker is done with it.
func (r *AssetRepository) RemoveStaged(ctx context.Context, key string) error {
	if err := r.client.RemoveObject(ctx, r.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove staged object %s: %w", key, err)
	}
	return nil
}

func (r *AssetRepository) publicURL(key string) string {
	base := strings.TrimRight(r.cfg.PublicURL, "/")
	return fmt.Sprintf("%s/%s/%s", base, r.cfg.Bucket, key)
}

func objectKey(folder, contentType string) string {
	return path.Join(folder, uuid.NewString()+extensionFor(contentType))
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
