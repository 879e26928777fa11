// Package storage persists downloaded recipe images in S3-compatible object
// storage via MinIO.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds the object storage connection settings.
type Config struct {
	Endpoint  string `json:"endpoint" validate:"required"`
	AccessKey string `json:"access_key" validate:"required"`
	SecretKey string `json:"secret_key" validate:"required"`
	Bucket    string `json:"bucket" validate:"required"`
	UseSSL    bool   `json:"use_ssl"`
}

// ImageStore uploads and serves note images from a single bucket.
type ImageStore struct {
	client *minio.Client
	bucket string
}

// NewImageStore connects to the MinIO endpoint and ensures the bucket exists.
func NewImageStore(ctx context.Context, cfg Config) (*ImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &ImageStore{client: client, bucket: cfg.Bucket}, nil
}

// Put stores image bytes under a key derived from the note ID and returns the
// object key. Existing objects for the same key are left untouched so
// redelivered image jobs stay idempotent.
func (s *ImageStore) Put(ctx context.Context, noteID uuid.UUID, sourceURL, contentType string, data []byte) (string, error) {
	key := objectKey(noteID, sourceURL, contentType)

	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return key, nil
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return "", fmt.Errorf("failed to check for existing object %s: %w", key, err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to store image %s: %w", key, err)
	}
	return key, nil
}

// Get streams a stored image back as bytes along with its content type.
func (s *ImageStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer object.Close()

	stat, err := object.Stat()
	if err != nil {
		return nil, "", fmt.Errorf("failed to stat object %s: %w", key, err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, stat.Size))
	if _, err := buf.ReadFrom(object); err != nil {
		return nil, "", fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return buf.Bytes(), stat.ContentType, nil
}

// objectKey builds a stable key for a note's image. The extension comes from
// the source URL when present, falling back on the content type.
func objectKey(noteID uuid.UUID, sourceURL, contentType string) string {
	ext := strings.ToLower(path.Ext(sourceURL))
	if i := strings.IndexAny(ext, "?#"); i >= 0 {
		ext = ext[:i]
	}
	if ext == "" || len(ext) > 5 {
		switch contentType {
		case "image/png":
			ext = ".png"
		case "image/gif":
			ext = ".gif"
		case "image/webp":
			ext = ".webp"
		default:
			ext = ".jpg"
		}
	}
	return fmt.Sprintf("notes/%s/image%s", noteID, ext)
}
