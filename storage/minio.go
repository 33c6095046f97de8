package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"melodex/config"
	"melodex/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StoredObject describes an object placed in blob storage.
type StoredObject struct {
	PublicURL string `json:"publicUrl"`
	Path      string `json:"path"`
}

// BlobStore stores and removes binary objects (covers, audio) behind
// a MinIO-compatible provider.
type BlobStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewBlobStore connects to the blob-storage provider and ensures the
// bucket exists.
func NewBlobStore(cfg *config.Config) (*BlobStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created storage bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &BlobStore{
		client:    client,
		bucket:    cfg.MinioBucket,
		publicURL: strings.TrimRight(cfg.MinioPublicURL, "/"),
	}, nil
}

// Store uploads the object under a fresh uuid name inside folder and
// returns its public locator.
func (s *BlobStore) Store(ctx context.Context, r io.Reader, size int64, folder, filename, contentType string) (*StoredObject, error) {
	ext := path.Ext(filename)
	objectPath := fmt.Sprintf("%s/%s%s", strings.Trim(folder, "/"), uuid.New().String(), ext)

	_, err := s.client.PutObject(ctx, s.bucket, objectPath, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store object %s: %w", objectPath, err)
	}

	logger.Debug("Stored object", logger.String("path", objectPath), logger.Int64("size", size))
	return &StoredObject{
		PublicURL: s.publicURL + "/" + objectPath,
		Path:      objectPath,
	}, nil
}

// Remove deletes an object by its storage path.
func (s *BlobStore) Remove(ctx context.Context, objectPath string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectPath, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove object %s: %w", objectPath, err)
	}
	return nil
}

// ListObjects prints the objects under prefix. Used by the minio
// inspection subcommand.
func (s *BlobStore) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}
	names := make([]string, 0)
	for object := range s.client.ListObjects(ctx, s.bucket, opts) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		names = append(names, object.Key)
	}
	return names, nil
}
