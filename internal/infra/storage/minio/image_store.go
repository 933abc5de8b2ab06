package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/config"
)

// objectAPI is the slice of *minio.Client the image store needs; tests substitute a fake.
type objectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ImageStore keeps plant images in an S3-compatible bucket.
type ImageStore struct {
	api     objectAPI
	bucket  string
	baseURL string
}

// New dials the configured endpoint and makes sure the bucket exists.
func New(ctx context.Context, cfg config.StorageSettings) (*ImageStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("storage endpoint is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = (&url.URL{Scheme: scheme, Host: cfg.Endpoint, Path: "/" + cfg.Bucket}).String()
	}

	return NewWithAPI(ctx, client, cfg.Bucket, cfg.Region, baseURL)
}

// NewWithAPI builds a store on top of an arbitrary object API.
func NewWithAPI(ctx context.Context, api objectAPI, bucket, region, baseURL string) (*ImageStore, error) {
	store := &ImageStore{
		api:     api,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}

	exists, err := api.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", bucket, err)
	}
	if !exists {
		if err := api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
	}

	return store, nil
}

// Put uploads body under key and returns its public URL.
func (s *ImageStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := s.api.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return "", fmt.Errorf("upload object %q: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// PublicURL renders the address clients use to fetch key.
func (s *ImageStore) PublicURL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}

// HealthCheck verifies the bucket is reachable.
func (s *ImageStore) HealthCheck(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("object store health check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("object store health check failed: bucket %q missing", s.bucket)
	}
	return nil
}

var _ port.ImageStore = (*ImageStore)(nil)
