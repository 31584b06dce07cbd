// Package minio archives fetched source bytes in an S3 compatible bucket.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-drive/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.BlobStore = (*Store)(nil)

// DefaultBucket is used when Config.Bucket is empty.
const DefaultBucket = "sercha-drive"

// Config holds the object storage connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool

	// Prefix is prepended to every object key.
	Prefix string
}

// Store writes objects to one bucket.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
	log    logger.Logger
}

// New connects to the endpoint and creates the bucket when missing.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio: endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: creating client: %w", err)
	}
	return NewStore(ctx, client, cfg.Bucket, cfg.Prefix)
}

// NewStore wraps an existing client and ensures the bucket exists.
func NewStore(ctx context.Context, client *minio.Client, bucket, prefix string) (*Store, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	s := &Store{
		client: client,
		bucket: bucket,
		prefix: trimPrefix(prefix),
		log:    logger.With("minio"),
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio: checking bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio: creating bucket %s: %w", bucket, err)
		}
		s.log.Info("created bucket %s", bucket)
	}
	return s, nil
}

// Put uploads data under key, replacing any previous object.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(key), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("minio: uploading %s: %w", key, err)
	}
	return nil
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

func (s *Store) objectName(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func trimPrefix(prefix string) string {
	return strings.Trim(prefix, "/")
}
