// Package objectstore serves the store contract from an S3-compatible bucket
// (MinIO locally, any S3 provider in production). Objects are never public;
// every listing hands out presigned GET URLs.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/notedrop/service/internal/logging"
	"github.com/notedrop/service/internal/store"
)

// DefaultPresignExpiry is the lifetime of URLs returned by a listing.
const DefaultPresignExpiry = 15 * time.Minute

// API is the subset of *minio.Client the backend uses.
type API interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucket, key string, expires time.Duration, params url.Values) (*url.URL, error)
}

// ClientConfig holds the connection settings of the bucket service.
type ClientConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// NewClient creates a MinIO client. It does not contact the server.
func NewClient(cfg ClientConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return client, nil
}

// EnsureBucket creates bucket if it does not exist yet. No bucket policy is
// set; objects stay private.
func EnsureBucket(ctx context.Context, api API, bucket, region string, log logging.Logger) error {
	exists, err := api.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %q: %w", bucket, err)
	}
	log.Info(ctx, "created bucket", "bucket", bucket, "region", region)
	return nil
}

// mapError files an S3 error under the store taxonomy.
func mapError(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return store.Wrap(store.KindNotFound, op, "object not found", err)
	case "AccessDenied", "AllAccessDisabled":
		return store.Wrap(store.KindPermission, op, "bucket denied the operation", err)
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
		return store.Wrap(store.KindAuth, op, "bucket rejected the credential", err)
	}

	if resp.StatusCode != 0 {
		kind := store.FromStatus(resp.StatusCode)
		return store.Wrap(kind, op, fmt.Sprintf("bucket request failed (%d)", resp.StatusCode), err)
	}
	return store.Wrap(store.KindProtocol, op, "bucket request failed", err)
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
